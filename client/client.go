package client

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sisu-network/lib/log"

	"github.com/sisu-network/drelay/types"
)

const (
	RETRY_TIME = 10 * time.Second
)

// A client that connects to the bridge server on the host ledger side.
type Client interface {
	TryDial()
	GetVersion() (string, error)
	PostWithdrawalResult(result *types.WithdrawalResult) error
}

var (
	ErrBridgeServerNotConnected = errors.New("bridge server is not connected")
)

type DefaultClient struct {
	client    *rpc.Client
	url       string
	connected bool
}

func NewClient(url string) Client {
	return &DefaultClient{
		url: url,
	}
}

func (c *DefaultClient) TryDial() {
	log.Info("Trying to dial the bridge server")

	for {
		log.Info("Dialing...", c.url)
		var err error
		c.client, err = rpc.DialContext(context.Background(), c.url)
		if err != nil {
			log.Error("Cannot connect to the bridge server err = ", err)
			time.Sleep(RETRY_TIME)
			continue
		}

		_, err = c.GetVersion()
		if err != nil {
			log.Error("Cannot get the bridge server version err = ", err)
			time.Sleep(RETRY_TIME)
			continue
		}

		c.connected = true
		break
	}

	log.Info("Bridge server is connected")
}

func (c *DefaultClient) GetVersion() (string, error) {
	if c.client == nil {
		return "", ErrBridgeServerNotConnected
	}

	var version string
	err := c.client.CallContext(context.Background(), &version, "omni_version")
	return version, err
}

func (c *DefaultClient) PostWithdrawalResult(result *types.WithdrawalResult) error {
	if !c.connected {
		return ErrBridgeServerNotConnected
	}

	log.Verbose("Posting withdrawal result back to the bridge server...")

	var r string
	err := c.client.CallContext(context.Background(), &r, "omni_postWithdrawalResult", result)
	if err != nil {
		log.Error("Cannot post withdrawal result, attempt = ", result.AttemptId, " err = ", err)
		return err
	}

	return nil
}
