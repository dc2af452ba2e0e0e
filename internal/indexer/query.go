package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

var ErrNotFound = errors.New("not found")

type RoundFilter struct {
	Asset  string
	Status string
	Limit  int
	Offset int
}

type RoundRecord struct {
	RoundID           uint64  `json:"round_id"`
	Pubkey            string  `json:"pubkey"`
	AssetSymbol       string  `json:"asset_symbol"`
	StartPrice        int64   `json:"start_price"`
	EndPrice          int64   `json:"end_price"`
	StartTime         int64   `json:"start_time"`
	BettingEndTime    int64   `json:"betting_end_time"`
	EndTime           int64   `json:"end_time"`
	Status            string  `json:"status"`
	ShortPool         string  `json:"short_pool"`
	LongPool          string  `json:"long_pool"`
	ShortWeightedPool string  `json:"short_weighted_pool"`
	LongWeightedPool  string  `json:"long_weighted_pool"`
	BetCount          uint32  `json:"bet_count"`
	PayoutsProcessed  uint32  `json:"payouts_processed"`
	WinningSide       *string `json:"winning_side"`
	Slot              uint64  `json:"slot"`
	UpdatedAt         int64   `json:"updated_at"`
}

type BetFilter struct {
	RoundID *uint64
	Bettor  string
	Limit   int
	Offset  int
}

type BetRecord struct {
	Pubkey         string  `json:"pubkey"`
	RoundID        uint64  `json:"round_id"`
	BetIndex       uint32  `json:"bet_index"`
	Bettor         string  `json:"bettor"`
	Side           string  `json:"side"`
	Amount         string  `json:"amount"`
	OriginalAmount string  `json:"original_amount"`
	BetTime        int64   `json:"bet_time"`
	Weight         uint64  `json:"weight"`
	PaidOut        bool    `json:"paid_out"`
	Referrer       *string `json:"referrer"`
	Slot           uint64  `json:"slot"`
	UpdatedAt      int64   `json:"updated_at"`
}

type LeaderboardEntry struct {
	Bettor       string  `json:"bettor"`
	Bets         int64   `json:"bets"`
	Wins         int64   `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	TotalWagered string  `json:"total_wagered"`
}

type SyncStatus struct {
	LastSlot  uint64 `json:"last_slot"`
	UpdatedAt int64  `json:"updated_at"`
	Rounds    int64  `json:"rounds"`
	Bets      int64  `json:"bets"`
}

const roundColumns = `
	round_id,
	pubkey,
	asset_symbol,
	start_price,
	end_price,
	start_time,
	betting_end_time,
	end_time,
	status,
	short_pool,
	long_pool,
	short_weighted_pool,
	long_weighted_pool,
	bet_count,
	payouts_processed,
	winning_side,
	slot,
	updated_at
`

func (s *Store) ListRounds(ctx context.Context, filter RoundFilter) ([]RoundRecord, int, int, error) {
	limit, offset := normalizePagination(filter.Limit, filter.Offset)
	clauses := []string{"1 = 1"}
	args := make([]any, 0, 4)

	if filter.Asset != "" {
		clauses = append(clauses, "asset_symbol = ?")
		args = append(args, strings.ToUpper(filter.Asset))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, strings.ToLower(filter.Status))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM rounds
		WHERE %s
		ORDER BY round_id DESC
		LIMIT ? OFFSET ?
	`, roundColumns, strings.Join(clauses, " AND "))
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	items := make([]RoundRecord, 0, limit)
	for rows.Next() {
		item, err := scanRoundRecord(rows)
		if err != nil {
			return nil, 0, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	return items, limit, offset, nil
}

func (s *Store) GetRound(ctx context.Context, roundID uint64) (RoundRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM rounds
		WHERE round_id = ?
	`, roundColumns)

	rows, err := s.db.QueryContext(ctx, query, int64(roundID))
	if err != nil {
		return RoundRecord{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return RoundRecord{}, err
		}
		return RoundRecord{}, ErrNotFound
	}
	return scanRoundRecord(rows)
}

func scanRoundRecord(rows *sql.Rows) (RoundRecord, error) {
	var item RoundRecord
	var roundID int64
	var betCount int64
	var payoutsProcessed int64
	var winningSide sql.NullString
	var slot int64
	if err := rows.Scan(
		&roundID,
		&item.Pubkey,
		&item.AssetSymbol,
		&item.StartPrice,
		&item.EndPrice,
		&item.StartTime,
		&item.BettingEndTime,
		&item.EndTime,
		&item.Status,
		&item.ShortPool,
		&item.LongPool,
		&item.ShortWeightedPool,
		&item.LongWeightedPool,
		&betCount,
		&payoutsProcessed,
		&winningSide,
		&slot,
		&item.UpdatedAt,
	); err != nil {
		return RoundRecord{}, err
	}
	item.RoundID = uint64(roundID)
	item.BetCount = uint32(betCount)
	item.PayoutsProcessed = uint32(payoutsProcessed)
	if winningSide.Valid {
		item.WinningSide = &winningSide.String
	}
	item.Slot = uint64(slot)
	return item, nil
}

func (s *Store) ListBets(ctx context.Context, filter BetFilter) ([]BetRecord, int, int, error) {
	limit, offset := normalizePagination(filter.Limit, filter.Offset)
	clauses := []string{"1 = 1"}
	args := make([]any, 0, 4)

	if filter.RoundID != nil {
		clauses = append(clauses, "round_id = ?")
		args = append(args, int64(*filter.RoundID))
	}
	if filter.Bettor != "" {
		clauses = append(clauses, "bettor = ?")
		args = append(args, filter.Bettor)
	}

	query := fmt.Sprintf(`
		SELECT
			pubkey,
			round_id,
			bet_index,
			bettor,
			side,
			amount,
			original_amount,
			bet_time,
			weight,
			paid_out,
			referrer,
			slot,
			updated_at
		FROM bets
		WHERE %s
		ORDER BY round_id DESC, bet_index ASC
		LIMIT ? OFFSET ?
	`, strings.Join(clauses, " AND "))
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	items := make([]BetRecord, 0, limit)
	for rows.Next() {
		var item BetRecord
		var roundID int64
		var betIndex int64
		var weight int64
		var paidOut int
		var referrer sql.NullString
		var slot int64
		if err := rows.Scan(
			&item.Pubkey,
			&roundID,
			&betIndex,
			&item.Bettor,
			&item.Side,
			&item.Amount,
			&item.OriginalAmount,
			&item.BetTime,
			&weight,
			&paidOut,
			&referrer,
			&slot,
			&item.UpdatedAt,
		); err != nil {
			return nil, 0, 0, err
		}
		item.RoundID = uint64(roundID)
		item.BetIndex = uint32(betIndex)
		item.Weight = uint64(weight)
		item.PaidOut = paidOut != 0
		if referrer.Valid {
			item.Referrer = &referrer.String
		}
		item.Slot = uint64(slot)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	return items, limit, offset, nil
}

// GetLeaderboard ranks bettors over settled rounds only, so open positions
// never count as losses.
func (s *Store) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			b.bettor,
			COUNT(*) AS bets,
			COUNT(*) FILTER (WHERE r.winning_side = b.side) AS wins,
			COALESCE(SUM(b.amount::NUMERIC), 0)::TEXT AS total_wagered
		FROM bets b
		JOIN rounds r ON r.round_id = b.round_id
		WHERE r.status = 'settled' AND r.winning_side IS NOT NULL
		GROUP BY b.bettor
		ORDER BY wins DESC, bets DESC, b.bettor ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var item LeaderboardEntry
		if err := rows.Scan(&item.Bettor, &item.Bets, &item.Wins, &item.TotalWagered); err != nil {
			return nil, err
		}
		if item.Bets > 0 {
			item.WinRate = float64(item.Wins) / float64(item.Bets)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) GetSyncStatus(ctx context.Context) (SyncStatus, error) {
	var status SyncStatus

	var lastSlot int64
	err := s.db.QueryRowContext(ctx, `SELECT last_slot, updated_at FROM sync_state WHERE id = 1`).
		Scan(&lastSlot, &status.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return SyncStatus{}, err
	}
	status.LastSlot = uint64(lastSlot)

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds`).Scan(&status.Rounds); err != nil {
		return SyncStatus{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets`).Scan(&status.Bets); err != nil {
		return SyncStatus{}, err
	}

	return status, nil
}

func normalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
