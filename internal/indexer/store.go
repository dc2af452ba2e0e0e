package indexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cannedoxygen/microperps/internal/lrc"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	db *DB
}

type DB struct {
	raw *sql.DB
}

type Tx struct {
	raw *sql.Tx
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.raw.ExecContext(ctx, rebindPostgresPlaceholders(query), args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.raw.QueryContext(ctx, rebindPostgresPlaceholders(query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.raw.QueryRowContext(ctx, rebindPostgresPlaceholders(query), args...)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.raw.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{raw: tx}, nil
}

func (db *DB) Close() error {
	return db.raw.Close()
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.raw.ExecContext(ctx, rebindPostgresPlaceholders(query), args...)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.raw.QueryContext(ctx, rebindPostgresPlaceholders(query), args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.raw.QueryRowContext(ctx, rebindPostgresPlaceholders(query), args...)
}

func (tx *Tx) Commit() error {
	return tx.raw.Commit()
}

func (tx *Tx) Rollback() error {
	return tx.raw.Rollback()
}

func rebindPostgresPlaceholders(query string) string {
	var out strings.Builder
	out.Grow(len(query) + 16)

	arg := 1
	inSingleQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			out.WriteByte(ch)
			if inSingleQuote {
				// SQL escape: two single quotes inside a string literal.
				if i+1 < len(query) && query[i+1] == '\'' {
					out.WriteByte(query[i+1])
					i++
					continue
				}
				inSingleQuote = false
			} else {
				inSingleQuote = true
			}
			continue
		}

		if ch == '?' && !inSingleQuote {
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(arg))
			arg++
			continue
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func NewStore(dbDSN string) (*Store, error) {
	db, err := sql.Open("pgx", dbDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetConnMaxIdleTime(30 * time.Second)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &Store{db: &DB{raw: db}}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sync_state (
			id BIGINT PRIMARY KEY CHECK (id = 1),
			last_slot BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			round_id BIGINT PRIMARY KEY,
			pubkey TEXT NOT NULL,
			asset_symbol TEXT NOT NULL,
			start_price BIGINT NOT NULL,
			end_price BIGINT NOT NULL,
			start_time BIGINT NOT NULL,
			betting_end_time BIGINT NOT NULL,
			end_time BIGINT NOT NULL,
			status TEXT NOT NULL,
			short_pool TEXT NOT NULL,
			long_pool TEXT NOT NULL,
			short_weighted_pool TEXT NOT NULL,
			long_weighted_pool TEXT NOT NULL,
			bet_count BIGINT NOT NULL,
			payouts_processed BIGINT NOT NULL,
			winning_side TEXT,
			legacy INTEGER NOT NULL DEFAULT 0,
			raw_json TEXT NOT NULL,
			slot BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_status ON rounds(status, start_time DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_asset_time ON rounds(asset_symbol, start_time DESC);`,
		`CREATE TABLE IF NOT EXISTS bets (
			pubkey TEXT PRIMARY KEY,
			round_id BIGINT NOT NULL,
			bet_index BIGINT NOT NULL,
			bettor TEXT NOT NULL,
			side TEXT NOT NULL,
			amount TEXT NOT NULL,
			original_amount TEXT NOT NULL,
			bet_time BIGINT NOT NULL,
			weight BIGINT NOT NULL,
			paid_out INTEGER NOT NULL DEFAULT 0,
			referrer TEXT,
			raw_json TEXT NOT NULL,
			slot BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bets_round_index ON bets(round_id, bet_index);`,
		`CREATE INDEX IF NOT EXISTS idx_bets_bettor_time ON bets(bettor, bet_time DESC);`,
	}

	for _, query := range ddl {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

func (s *Store) UpsertSyncStateTx(ctx context.Context, tx *Tx, slot uint64) error {
	now := time.Now().Unix()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_slot, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_slot = excluded.last_slot,
			updated_at = excluded.updated_at
	`, int64(slot), now)
	return err
}

func (s *Store) UpsertRoundTx(ctx context.Context, tx *Tx, pubkey solana.PublicKey, slot uint64, round *lrc.Round) error {
	raw, err := json.Marshal(round)
	if err != nil {
		return err
	}

	var winningSide any
	if round.WinningSide != nil {
		winningSide = round.WinningSide.String()
	}
	legacy := 0
	if round.Legacy {
		legacy = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rounds (
			round_id, pubkey, asset_symbol, start_price, end_price,
			start_time, betting_end_time, end_time, status,
			short_pool, long_pool, short_weighted_pool, long_weighted_pool,
			bet_count, payouts_processed, winning_side, legacy,
			raw_json, slot, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(round_id) DO UPDATE SET
			pubkey = excluded.pubkey,
			asset_symbol = excluded.asset_symbol,
			start_price = excluded.start_price,
			end_price = excluded.end_price,
			start_time = excluded.start_time,
			betting_end_time = excluded.betting_end_time,
			end_time = excluded.end_time,
			status = excluded.status,
			short_pool = excluded.short_pool,
			long_pool = excluded.long_pool,
			short_weighted_pool = excluded.short_weighted_pool,
			long_weighted_pool = excluded.long_weighted_pool,
			bet_count = excluded.bet_count,
			payouts_processed = excluded.payouts_processed,
			winning_side = excluded.winning_side,
			legacy = excluded.legacy,
			raw_json = excluded.raw_json,
			slot = excluded.slot,
			updated_at = excluded.updated_at
	`,
		int64(round.RoundID),
		pubkey.String(),
		round.AssetSymbol,
		round.StartPrice,
		round.EndPrice,
		round.StartTime,
		round.BettingEndTime,
		round.EndTime,
		round.Status.String(),
		strconv.FormatUint(round.ShortPool, 10),
		strconv.FormatUint(round.LongPool, 10),
		strconv.FormatUint(round.ShortWeightedPool, 10),
		strconv.FormatUint(round.LongWeightedPool, 10),
		int64(round.BetCount),
		int64(round.PayoutsProcessed),
		winningSide,
		legacy,
		string(raw),
		int64(slot),
		time.Now().Unix(),
	)
	return err
}

func (s *Store) UpsertBetTx(ctx context.Context, tx *Tx, pubkey solana.PublicKey, slot uint64, bet *lrc.Bet) error {
	raw, err := json.Marshal(bet)
	if err != nil {
		return err
	}

	var referrer any
	if bet.Referrer != nil {
		referrer = bet.Referrer.String()
	}
	paidOut := 0
	if bet.PaidOut {
		paidOut = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bets (
			pubkey, round_id, bet_index, bettor, side,
			amount, original_amount, bet_time, weight, paid_out,
			referrer, raw_json, slot, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pubkey) DO UPDATE SET
			round_id = excluded.round_id,
			bet_index = excluded.bet_index,
			bettor = excluded.bettor,
			side = excluded.side,
			amount = excluded.amount,
			original_amount = excluded.original_amount,
			bet_time = excluded.bet_time,
			weight = excluded.weight,
			paid_out = excluded.paid_out,
			referrer = excluded.referrer,
			raw_json = excluded.raw_json,
			slot = excluded.slot,
			updated_at = excluded.updated_at
	`,
		pubkey.String(),
		int64(bet.RoundID),
		int64(bet.BetIndex),
		bet.Bettor.String(),
		bet.Side.String(),
		strconv.FormatUint(bet.Amount, 10),
		strconv.FormatUint(bet.OriginalAmount, 10),
		bet.BetTime,
		int64(bet.Weight),
		paidOut,
		referrer,
		string(raw),
		int64(slot),
		time.Now().Unix(),
	)
	return err
}
