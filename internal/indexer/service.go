package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cannedoxygen/microperps/internal/config"
	"github.com/cannedoxygen/microperps/internal/lrc"
	"github.com/cannedoxygen/microperps/internal/retry"
)

type Service struct {
	cfg    config.IndexerConfig
	rpc    *rpc.Client
	store  *Store
	logger *slog.Logger
}

func New(cfg config.IndexerConfig, logger *slog.Logger) (*Service, error) {
	store, err := NewStore(cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	return &Service{
		cfg:    cfg,
		rpc:    rpc.New(cfg.RPCURL),
		store:  store,
		logger: logger,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close store", "err", err)
		}
	}()

	s.logger.Info("indexer started",
		"rpc", s.cfg.RPCURL,
		"program_id", s.cfg.ProgramID,
		"db_driver", "postgres",
		"commitment", s.cfg.Commitment,
	)

	if err := s.syncOnce(ctx); err != nil {
		s.logger.Error("initial sync failed", "err", err)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("indexer stopped")
			return nil
		case <-ticker.C:
			if err := s.syncOnce(ctx); err != nil {
				s.logger.Error("sync failed", "err", err)
			}
		}
	}
}

func (s *Service) syncOnce(ctx context.Context) error {
	var slot uint64
	err := s.withRPCRetry(ctx, "get slot", func(ctx context.Context) error {
		var err error
		slot, err = s.rpc.GetSlot(ctx, s.cfg.Commitment)
		return err
	})
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}

	stats := map[string]int{}

	err = s.store.WithTx(ctx, func(tx *Tx) error {
		if err := s.syncRounds(ctx, tx, slot, stats); err != nil {
			return err
		}
		if err := s.syncBets(ctx, tx, slot, stats); err != nil {
			return err
		}
		return s.store.UpsertSyncStateTx(ctx, tx, slot)
	})
	if err != nil {
		return err
	}

	s.logger.Info(
		"sync complete",
		"slot", slot,
		"rounds", stats["rounds"],
		"bets", stats["bets"],
	)

	return nil
}

func (s *Service) syncRounds(ctx context.Context, tx *Tx, slot uint64, stats map[string]int) error {
	return s.scanAndStore(ctx, slot, "Round", lrc.AccountRound,
		func(item *rpc.KeyedAccount) error {
			round, err := lrc.DecodeRound(item.Account.Data.GetBinary())
			if err != nil {
				return err
			}
			stats["rounds"]++
			return s.store.UpsertRoundTx(ctx, tx, item.Pubkey, slot, round)
		})
}

func (s *Service) syncBets(ctx context.Context, tx *Tx, slot uint64, stats map[string]int) error {
	return s.scanAndStore(ctx, slot, "Bet", lrc.AccountBet,
		func(item *rpc.KeyedAccount) error {
			bet, err := lrc.DecodeBet(item.Account.Data.GetBinary())
			if err != nil {
				return err
			}
			stats["bets"]++
			return s.store.UpsertBetTx(ctx, tx, item.Pubkey, slot, bet)
		})
}

func (s *Service) scanAndStore(
	ctx context.Context,
	slot uint64,
	accountType string,
	discriminator [8]byte,
	handler func(item *rpc.KeyedAccount) error,
) error {
	var accounts rpc.GetProgramAccountsResult
	err := s.withRPCRetry(ctx, "get program accounts", func(ctx context.Context) error {
		var err error
		accounts, err = s.rpc.GetProgramAccountsWithOpts(ctx, s.cfg.ProgramID, &rpc.GetProgramAccountsOpts{
			Commitment: s.cfg.Commitment,
			Filters: []rpc.RPCFilter{
				{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(discriminator[:])}},
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("scan %s accounts for program %s: %w", accountType, s.cfg.ProgramID, err)
	}

	for _, item := range accounts {
		if item == nil || item.Account == nil {
			continue
		}
		if err := handler(item); err != nil {
			s.logger.Warn("failed to index account",
				"account_type", accountType,
				"pubkey", item.Pubkey,
				"slot", slot,
				"err", err,
			)
		}
	}
	return nil
}

// withRPCRetry retries transient RPC failures with doubling delays capped at
// RPCRetryMaxDelay.
func (s *Service) withRPCRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	policy := retry.Policy{
		MaxAttempts: s.cfg.RPCMaxRetries,
		Delay:       s.cfg.RPCRetryBaseDelay,
		MaxDelay:    s.cfg.RPCRetryMaxDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.logger.Warn("rpc call failed, retrying",
				"op", op,
				"attempt", attempt,
				"delay", delay.String(),
				"err", err,
			)
		},
	}
	if err := policy.Do(ctx, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
