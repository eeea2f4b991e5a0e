package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/logging"
	"github.com/dd0wney/cluso-trustrank/pkg/metrics"
)

// DefaultAttestationTable is the indexer table PostgresFetcher reads.
const DefaultAttestationTable = "attestations"

// Querier is the subset of pgx used by PostgresFetcher. *pgx.Conn and
// *pgxpool.Pool both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresFetcher reads attestations from an indexer database. Addresses,
// UIDs and payloads are stored as 0x-prefixed hex text.
type PostgresFetcher struct {
	db      Querier
	table   string
	logger  logging.Logger
	metrics *metrics.Registry
}

// PostgresOption configures a PostgresFetcher.
type PostgresOption func(*PostgresFetcher)

// WithTable overrides the table name.
func WithTable(table string) PostgresOption {
	return func(f *PostgresFetcher) {
		f.table = table
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(logger logging.Logger) PostgresOption {
	return func(f *PostgresFetcher) {
		f.logger = logging.OrNop(logger)
	}
}

// WithFetchMetrics records fetch durations in reg.
func WithFetchMetrics(reg *metrics.Registry) PostgresOption {
	return func(f *PostgresFetcher) {
		f.metrics = reg
	}
}

// NewPostgresFetcher creates a fetcher over db.
func NewPostgresFetcher(db Querier, opts ...PostgresOption) *PostgresFetcher {
	f := &PostgresFetcher{
		db:     db,
		table:  DefaultAttestationTable,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *PostgresFetcher) query() string {
	return "SELECT uid, attester, recipient, data, time, revoked FROM " +
		pgx.Identifier{f.table}.Sanitize() +
		" WHERE schema_id = $1 ORDER BY time, uid"
}

// FetchAttestations returns every attestation recorded under schemaID,
// ordered by timestamp then UID.
func (f *PostgresFetcher) FetchAttestations(ctx context.Context, schemaID string) ([]Attestation, error) {
	start := time.Now()
	defer func() {
		if f.metrics != nil {
			f.metrics.RecordFetch("postgres", time.Since(start))
		}
	}()

	rows, err := f.db.Query(ctx, f.query(), schemaID)
	if err != nil {
		return nil, FetchError(schemaID, err)
	}
	defer rows.Close()

	var out []Attestation
	for rows.Next() {
		var (
			uid, attester, recipient string
			data                     *string
			ts                       int64
			revoked                  bool
		)
		if err := rows.Scan(&uid, &attester, &recipient, &data, &ts, &revoked); err != nil {
			return nil, NewError("scan").Schema(schemaID).Cause(errors.Mark(err, ErrFetchFailed)).Err()
		}

		att, err := parseRow(uid, attester, recipient, data, ts, revoked)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, FetchError(schemaID, err)
	}

	f.logger.Debug("fetched attestations",
		logging.Schema(schemaID),
		logging.Count(len(out)),
		logging.Latency(time.Since(start)))

	SortAttestations(out)
	return out, nil
}

func parseRow(uid, attester, recipient string, data *string, ts int64, revoked bool) (Attestation, error) {
	invalid := func(field string, cause error) error {
		return NewError("parse").Attestation(uid).Field(field).Cause(errors.Mark(cause, ErrInvalidRecord)).Err()
	}

	if !common.IsHexAddress(attester) {
		return Attestation{}, invalid("attester", ErrInvalidAddress)
	}
	if !common.IsHexAddress(recipient) {
		return Attestation{}, invalid("recipient", ErrInvalidAddress)
	}
	if ts < 0 {
		return Attestation{}, invalid("time", errors.Newf("negative timestamp %d", ts))
	}

	att := Attestation{
		UID:       common.HexToHash(uid),
		Attester:  account.Account(common.HexToAddress(attester)),
		Recipient: account.Account(common.HexToAddress(recipient)),
		Timestamp: uint64(ts),
		Revoked:   revoked,
	}
	if data != nil && *data != "" && *data != "0x" {
		payload, err := hexutil.Decode(*data)
		if err != nil {
			return Attestation{}, invalid("data", err)
		}
		att.Data = payload
	}
	return att, nil
}
