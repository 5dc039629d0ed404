package server

import (
	"github.com/sisu-network/drelay/core"
	"github.com/sisu-network/drelay/types"
)

type ApiHandler struct {
	relay *core.Relay
}

func NewApi(relay *core.Relay) *ApiHandler {
	return &ApiHandler{
		relay: relay,
	}
}

// Empty function for checking health only.
func (api *ApiHandler) CheckHealth() {
}

// SubmitTransferToDcrConnector hands a pending transfer to the DCR connector.
// It returns the attempt id; the terminal result is posted back to the bridge
// server once the settlement callback has run.
func (api *ApiHandler) SubmitTransferToDcrConnector(req *types.SubmitWithdrawalRequest) (string, error) {
	pending, err := api.relay.SubmitWithdrawal(req)
	if err != nil {
		return "", err
	}

	return pending.AttemptId(), nil
}

// SetPaused pauses or resumes withdrawals. DAO accounts only.
func (api *ApiHandler) SetPaused(caller types.AccountId, paused bool) error {
	return api.relay.SetPaused(caller, paused)
}
