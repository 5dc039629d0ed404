package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate"
	migratedb "github.com/golang-migrate/migrate/database"
	"github.com/golang-migrate/migrate/database/mysql"
	"github.com/golang-migrate/migrate/database/sqlite3"
	_ "github.com/golang-migrate/migrate/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/near/borsh-go"
	"github.com/sisu-network/lib/log"

	"github.com/sisu-network/drelay/config"
	"github.com/sisu-network/drelay/types"
)

var ErrIntentNotFound = errors.New("settlement intent not found")

// SettlementIntent is the durable trace of a dispatched settlement. It is
// written in the same transaction that retires the pending transfer and is
// cleared only when the outcome of the attempt is final.
type SettlementIntent struct {
	AttemptId    string
	TransferId   types.TransferId
	FeeRecipient types.AccountId
	Record       *types.TransferRecord
}

type Registry interface {
	Init() error
	Close() error

	GetTransfer(id types.TransferId) (*types.TransferRecord, error)
	InsertTransfer(id types.TransferId, record *types.TransferRecord) error

	// RemoveTransferForSettlement retires a pending transfer and records the
	// settlement intent for it in a single transaction. It returns the record
	// as stored. A second claim for the same transfer fails with
	// types.ErrTransferNotFound.
	RemoveTransferForSettlement(id types.TransferId, attemptId string,
		feeRecipient types.AccountId) (*types.TransferRecord, error)

	// RestoreTransfer moves the record captured by an intent back into the
	// pending set and clears the intent, in a single transaction. The stored
	// bytes are reinserted untouched.
	RestoreTransfer(attemptId string) error

	// FinishSettlement clears the intent of a settled transfer.
	FinishSettlement(attemptId string) error

	LoadSettlementIntents() ([]*SettlementIntent, error)
}

type DefaultRegistry struct {
	cfg *config.Drelay
	db  *sql.DB
}

type dbLogger struct {
}

func (logger *dbLogger) Printf(format string, v ...interface{}) {
	fmt.Printf(format, v...)
}

func (logger *dbLogger) Verbose() bool {
	return true
}

func NewRegistry(cfg *config.Drelay) Registry {
	return &DefaultRegistry{
		cfg: cfg,
	}
}

func (r *DefaultRegistry) Connect() error {
	if r.cfg.InMemory {
		database, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			return err
		}

		// Every new connection would get its own empty in-memory db.
		database.SetMaxOpenConns(1)

		r.db = database
		log.Info("Registry is using an in-memory database")
		return nil
	}

	host := r.cfg.DbHost
	if host == "" {
		return fmt.Errorf("DB host cannot be empty")
	}

	port := r.cfg.DbPort
	username := r.cfg.DbUsername
	password := r.cfg.DbPassword
	schema := r.cfg.DbSchema

	database, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/", username, password, host, port))
	if err != nil {
		return err
	}
	_, err = database.Exec("CREATE DATABASE IF NOT EXISTS " + schema)
	if err != nil {
		return err
	}
	database.Close()

	database, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", username, password, host, port, schema))
	if err != nil {
		return err
	}

	r.db = database
	log.Info("Registry db is connected successfully")
	return nil
}

func (r *DefaultRegistry) DoMigration() error {
	migrationDir, err := MigrationsTempDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(migrationDir)

	var driver migratedb.Driver
	dialect := "mysql"
	if r.cfg.InMemory {
		dialect = "sqlite3"
		driver, err = sqlite3.WithInstance(r.db, &sqlite3.Config{})
	} else {
		driver, err = mysql.WithInstance(r.db, &mysql.Config{})
	}
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationDir, dialect, driver)
	if err != nil {
		return err
	}

	m.Log = &dbLogger{}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func (r *DefaultRegistry) Init() error {
	err := r.Connect()
	if err != nil {
		log.Error("Failed to connect to the registry db, err = ", err)
		return err
	}

	err = r.DoMigration()
	if err != nil {
		log.Error("Failed to migrate the registry db, err = ", err)
		return err
	}

	return nil
}

func (r *DefaultRegistry) Close() error {
	if r.db == nil {
		return nil
	}

	return r.db.Close()
}

func encodeRecord(record *types.TransferRecord) ([]byte, error) {
	blob, err := borsh.Serialize(*record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer record: %v", err)
	}

	return blob, nil
}

func decodeRecord(blob []byte) (*types.TransferRecord, error) {
	record := new(types.TransferRecord)
	if err := borsh.Deserialize(record, blob); err != nil {
		return nil, fmt.Errorf("failed to decode transfer record: %v", err)
	}

	return record, nil
}

func (r *DefaultRegistry) GetTransfer(id types.TransferId) (*types.TransferRecord, error) {
	row := r.db.QueryRow(
		"SELECT record FROM pending_transfers WHERE origin_chain = ? AND origin_nonce = ?",
		int(id.OriginChain), int64(id.OriginNonce),
	)

	var blob []byte
	switch err := row.Scan(&blob); err {
	case nil:
	case sql.ErrNoRows:
		return nil, types.ErrTransferNotFound
	default:
		return nil, err
	}

	return decodeRecord(blob)
}

func (r *DefaultRegistry) InsertTransfer(id types.TransferId, record *types.TransferRecord) error {
	blob, err := encodeRecord(record)
	if err != nil {
		return err
	}

	// REPLACE keeps re-registration of the same transfer idempotent.
	_, err = r.db.Exec(
		"REPLACE INTO pending_transfers (origin_chain, origin_nonce, record) VALUES (?, ?, ?)",
		int(id.OriginChain), int64(id.OriginNonce), blob,
	)

	return err
}

func (r *DefaultRegistry) RemoveTransferForSettlement(id types.TransferId, attemptId string,
	feeRecipient types.AccountId) (*types.TransferRecord, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(
		"SELECT record FROM pending_transfers WHERE origin_chain = ? AND origin_nonce = ?",
		int(id.OriginChain), int64(id.OriginNonce),
	)

	var blob []byte
	switch err := row.Scan(&blob); err {
	case nil:
	case sql.ErrNoRows:
		tx.Rollback()
		return nil, types.ErrTransferNotFound
	default:
		tx.Rollback()
		return nil, err
	}

	record, err := decodeRecord(blob)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	res, err := tx.Exec(
		"DELETE FROM pending_transfers WHERE origin_chain = ? AND origin_nonce = ?",
		int(id.OriginChain), int64(id.OriginNonce),
	)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		// Another claim won the race.
		tx.Rollback()
		return nil, types.ErrTransferNotFound
	}

	_, err = tx.Exec(
		"INSERT INTO settlement_intents (attempt_id, origin_chain, origin_nonce, fee_recipient, record) VALUES (?, ?, ?, ?, ?)",
		attemptId, int(id.OriginChain), int64(id.OriginNonce), string(feeRecipient), blob,
	)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *DefaultRegistry) RestoreTransfer(attemptId string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	row := tx.QueryRow(
		"SELECT origin_chain, origin_nonce, record FROM settlement_intents WHERE attempt_id = ?",
		attemptId,
	)

	var (
		chain int
		nonce int64
		blob  []byte
	)
	switch err := row.Scan(&chain, &nonce, &blob); err {
	case nil:
	case sql.ErrNoRows:
		tx.Rollback()
		return ErrIntentNotFound
	default:
		tx.Rollback()
		return err
	}

	_, err = tx.Exec(
		"INSERT INTO pending_transfers (origin_chain, origin_nonce, record) VALUES (?, ?, ?)",
		chain, nonce, blob,
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Exec("DELETE FROM settlement_intents WHERE attempt_id = ?", attemptId)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *DefaultRegistry) FinishSettlement(attemptId string) error {
	res, err := r.db.Exec("DELETE FROM settlement_intents WHERE attempt_id = ?", attemptId)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return ErrIntentNotFound
	}

	return nil
}

func (r *DefaultRegistry) LoadSettlementIntents() ([]*SettlementIntent, error) {
	rows, err := r.db.Query(
		"SELECT attempt_id, origin_chain, origin_nonce, fee_recipient, record FROM settlement_intents ORDER BY origin_chain, origin_nonce",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]*SettlementIntent, 0)
	for rows.Next() {
		var (
			attemptId    string
			chain        int
			nonce        int64
			feeRecipient string
			blob         []byte
		)
		if err := rows.Scan(&attemptId, &chain, &nonce, &feeRecipient, &blob); err != nil {
			return nil, err
		}

		record, err := decodeRecord(blob)
		if err != nil {
			return nil, err
		}

		intents = append(intents, &SettlementIntent{
			AttemptId: attemptId,
			TransferId: types.TransferId{
				OriginChain: types.ChainKind(chain),
				OriginNonce: uint64(nonce),
			},
			FeeRecipient: types.AccountId(feeRecipient),
			Record:       record,
		})
	}

	return intents, rows.Err()
}
