package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cannedoxygen/microperps/internal/config"
	"github.com/cannedoxygen/microperps/internal/lrc"
	"github.com/cannedoxygen/microperps/internal/notify"
	"github.com/cannedoxygen/microperps/internal/pyth"
	"github.com/cannedoxygen/microperps/internal/retry"
)

var errSkipRound = errors.New("skip round")

// priceSource yields the latest normalized price for a Pyth feed.
type priceSource interface {
	LatestPrice(ctx context.Context, feedID string) (*pyth.Price, error)
}

// lifecycleAnnouncer mirrors notify.Announcer; broadcasts are best effort.
type lifecycleAnnouncer interface {
	AnnounceRoundStarted(ctx context.Context, round *lrc.Round)
	AnnounceBettingClosed(ctx context.Context, round *lrc.Round, currentPrice int64)
	AnnounceRoundSettled(ctx context.Context, round *lrc.Round)
}

// TickReport summarizes one tick for the cron trigger response and logs.
type TickReport struct {
	RoundCounter uint64        `json:"round_counter"`
	ClusterTime  int64         `json:"cluster_time"`
	Actions      []RoundAction `json:"actions"`
}

// RoundAction records one lifecycle step taken, or attempted, during a tick.
type RoundAction struct {
	RoundID          uint64 `json:"round_id"`
	Action           string `json:"action"`
	Asset            string `json:"asset,omitempty"`
	WinningSide      string `json:"winning_side,omitempty"`
	BetCount         uint32 `json:"bet_count,omitempty"`
	PayoutsProcessed int    `json:"payouts_processed,omitempty"`
	FeeLamports      uint64 `json:"fee_lamports,omitempty"`
	Signature        string `json:"signature,omitempty"`
	Error            string `json:"error,omitempty"`
}

type Service struct {
	cfg       config.KeeperConfig
	rpc       *rpc.Client
	signer    solana.PrivateKey
	prices    priceSource
	announcer lifecycleAnnouncer
	logger    *slog.Logger

	configKey   solana.PublicKey
	feedBySym   map[string]string
	pricePolicy retry.Policy
	batchPolicy retry.Policy
	rng         *rand.Rand

	// rounds whose betting-closed announcement already went out; in-memory
	// only, a restart may repeat the broadcast
	closedAnnounced map[uint64]struct{}
}

func New(cfg config.KeeperConfig, logger *slog.Logger) (*Service, error) {
	signer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.KeypairPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair %q: %w", cfg.KeypairPath, err)
	}

	configKey, _, err := lrc.DeriveConfigPDA(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive config PDA: %w", err)
	}

	feedBySym := make(map[string]string, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		feedBySym[asset.Symbol] = asset.PythFeedID
	}

	var announcer lifecycleAnnouncer
	if cfg.TelegramBotToken != "" && cfg.TelegramChannel != "" {
		publisher, err := notify.NewTelegramPublisher(cfg.TelegramBotToken, cfg.TelegramChannel)
		if err != nil {
			return nil, fmt.Errorf("telegram publisher: %w", err)
		}
		announcer = notify.NewAnnouncer(publisher, logger)
	}

	return &Service{
		cfg:         cfg,
		rpc:         rpc.New(cfg.RPCURL),
		signer:      signer,
		prices:      pyth.NewClient(cfg.HermesURL, cfg.HermesTimeout, logger),
		announcer:   announcer,
		logger:      logger,
		configKey:   configKey,
		feedBySym:   feedBySym,
		pricePolicy: retry.Policy{MaxAttempts: cfg.PriceRetries, Delay: cfg.PriceRetryDelay},
		batchPolicy: retry.Policy{MaxAttempts: cfg.BatchRetries, Delay: cfg.BatchRetryDelay, MaxDelay: 4 * cfg.BatchRetryDelay},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),

		closedAnnounced: make(map[uint64]struct{}),
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("keeper started",
		"rpc", s.cfg.RPCURL,
		"commitment", s.cfg.Commitment,
		"admin", s.signer.PublicKey(),
		"program", s.cfg.ProgramID,
		"round_duration", s.cfg.RoundDuration.String(),
		"assets", len(s.cfg.Assets),
	)

	if _, err := s.Tick(ctx); err != nil {
		s.logger.Error("keeper tick failed", "err", err)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("keeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Error("keeper tick failed", "err", err)
			}
		}
	}
}

// Tick drives the whole lifecycle once: sweep stale rounds, then open the
// next one when the previous has ended. The whole pass runs under one
// TickTimeout deadline. Safe to call concurrently with the poll loop; the
// on-chain state machine rejects duplicate transitions, and a lost race
// surfaces as an already-applied transition, not corruption.
func (s *Service) Tick(ctx context.Context) (TickReport, error) {
	if s.cfg.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TickTimeout)
		defer cancel()
	}

	report, err := s.tick(ctx)
	metricTicks.Inc()
	if err != nil {
		metricTickErrors.Inc()
	}
	return report, err
}

func (s *Service) tick(ctx context.Context) (TickReport, error) {
	var report TickReport

	chainConfig, err := s.fetchChainConfig(ctx)
	if err != nil {
		return report, err
	}
	counter := chainConfig.RoundCounter
	report.RoundCounter = counter
	metricRoundCounter.Set(float64(counter))

	now := s.getClusterUnixTime(ctx)
	report.ClusterTime = now

	// The most recent round is counter-1. While it is still running there is
	// nothing to do beyond the mid-round broadcast; settlement of older
	// rounds waits for the next boundary the same way the round itself does.
	if counter > 0 {
		last, err := s.fetchRound(ctx, counter-1)
		if err != nil && !errors.Is(err, errSkipRound) {
			return report, err
		}
		if last != nil && !last.Ended(now) && last.Status != lrc.StatusSettled {
			s.maybeAnnounceBettingClosed(ctx, last, now)
			s.logger.Info("round still active",
				"round_id", last.RoundID,
				"asset", last.AssetSymbol,
				"ends_in", (time.Duration(last.EndTime-now) * time.Second).String(),
			)
			report.Actions = append(report.Actions, RoundAction{
				RoundID: last.RoundID,
				Action:  "active",
				Asset:   last.AssetSymbol,
			})
			return report, nil
		}
	}

	report.Actions = append(report.Actions, s.sweepStaleRounds(ctx, chainConfig, counter, now)...)

	asset, err := s.pickAsset(ctx, counter)
	if err != nil {
		return report, err
	}

	startPrice, err := s.fetchPrice(ctx, asset)
	if err != nil {
		return report, fmt.Errorf("fetch start price for %s: %w", asset.Symbol, err)
	}

	sig, err := s.startRound(ctx, counter, asset, startPrice)
	if err != nil {
		return report, err
	}
	report.Actions = append(report.Actions, RoundAction{
		RoundID:   counter,
		Action:    "started",
		Asset:     asset.Symbol,
		Signature: sigString(sig),
	})
	return report, nil
}

// sweepStaleRounds walks the most recent rounds and finishes whatever a
// previous run left behind: ended rounds still Open or Locked get settled,
// Settling rounds get their remaining payouts. Returns one action per round
// it touched.
func (s *Service) sweepStaleRounds(ctx context.Context, chainConfig *lrc.Config, counter uint64, now int64) []RoundAction {
	depth := uint64(s.cfg.SettleSweep)
	if depth > counter {
		depth = counter
	}

	var actions []RoundAction
	for i := uint64(1); i <= depth; i++ {
		if ctx.Err() != nil {
			return actions
		}
		roundID := counter - i
		round, err := s.fetchRound(ctx, roundID)
		if err != nil {
			if !errors.Is(err, errSkipRound) {
				s.logger.Warn("failed to fetch round during sweep", "round_id", roundID, "err", err)
			}
			continue
		}

		switch decideRoundAction(round, now) {
		case actionSettle:
			settled, sig, err := s.settleRound(ctx, round)
			if err != nil {
				s.logger.Warn("settlement failed", "round_id", roundID, "err", err)
				actions = append(actions, RoundAction{
					RoundID: roundID,
					Action:  "settle_failed",
					Asset:   round.AssetSymbol,
					Error:   err.Error(),
				})
				continue
			}
			processed := s.processPayouts(ctx, settled)
			action := settledAction(chainConfig, settled, processed, sig)
			actions = append(actions, action)
			s.logger.Info("round settled",
				"round_id", roundID,
				"asset", settled.AssetSymbol,
				"winning_side", settled.WinningSide,
				"payouts_processed", processed,
				"fee_lamports", action.FeeLamports,
			)
			if s.announcer != nil {
				s.announcer.AnnounceRoundSettled(ctx, settled)
			}
		case actionPayout:
			processed := s.processPayouts(ctx, round)
			if processed > 0 {
				s.logger.Info("resumed payouts", "round_id", roundID, "processed", processed)
			}
			actions = append(actions, RoundAction{
				RoundID:          roundID,
				Action:           "payouts",
				Asset:            round.AssetSymbol,
				BetCount:         round.BetCount,
				PayoutsProcessed: processed,
			})
		case actionNone:
		}
	}
	return actions
}

// settledAction builds the report entry for a settlement. The fee figure is
// the treasury cut the program took across the round's net pool, estimated
// with the no-referrer split.
func settledAction(chainConfig *lrc.Config, round *lrc.Round, processed int, sig solana.Signature) RoundAction {
	action := RoundAction{
		RoundID:          round.RoundID,
		Action:           "settled",
		Asset:            round.AssetSymbol,
		BetCount:         round.BetCount,
		PayoutsProcessed: processed,
		Signature:        sigString(sig),
	}
	if round.WinningSide != nil {
		action.WinningSide = round.WinningSide.String()
	}
	if chainConfig != nil {
		action.FeeLamports, _ = chainConfig.FeeSplit(round.TotalPool(), false)
	}
	return action
}

func sigString(sig solana.Signature) string {
	if sig.IsZero() {
		return ""
	}
	return sig.String()
}

// settleRound submits settle_round with a fresh price for the round's own
// asset, then re-reads the account so callers see the on-chain outcome.
func (s *Service) settleRound(ctx context.Context, round *lrc.Round) (*lrc.Round, solana.Signature, error) {
	feedID, ok := s.feedBySym[strings.ToUpper(round.AssetSymbol)]
	if !ok {
		return nil, solana.Signature{}, fmt.Errorf("no price feed configured for asset %s", round.AssetSymbol)
	}

	endPrice, err := s.fetchPrice(ctx, config.AssetConfig{Symbol: round.AssetSymbol, PythFeedID: feedID})
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("fetch end price: %w", err)
	}

	roundKey, _, err := lrc.DeriveRoundPDA(s.cfg.ProgramID, round.RoundID)
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("derive round PDA: %w", err)
	}

	ix := lrc.NewSettleRoundInstruction(s.cfg.ProgramID, s.configKey, roundKey, s.signer.PublicKey(), endPrice)

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()
	sig, err := s.sendAndConfirm(txCtx, []solana.Instruction{ix})
	if err != nil {
		// A concurrent keeper may have settled first; re-read before giving up.
		if fresh, fetchErr := s.fetchRound(ctx, round.RoundID); fetchErr == nil &&
			(fresh.Status == lrc.StatusSettling || fresh.Status == lrc.StatusSettled) {
			s.logger.Info("round already settled elsewhere", "round_id", round.RoundID)
			return fresh, solana.Signature{}, nil
		}
		return nil, solana.Signature{}, fmt.Errorf("settle_round: %w", err)
	}
	metricRoundsSettled.Inc()

	fresh, err := s.fetchRound(ctx, round.RoundID)
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("re-read settled round: %w", err)
	}
	return fresh, sig, nil
}

func (s *Service) startRound(ctx context.Context, roundID uint64, asset config.AssetConfig, startPrice int64) (solana.Signature, error) {
	roundKey, _, err := lrc.DeriveRoundPDA(s.cfg.ProgramID, roundID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive round PDA: %w", err)
	}
	vaultKey, _, err := lrc.DeriveVaultPDA(s.cfg.ProgramID, roundID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive vault PDA: %w", err)
	}

	ix := lrc.NewStartRoundInstruction(
		s.cfg.ProgramID,
		s.configKey,
		roundKey,
		vaultKey,
		s.signer.PublicKey(),
		asset.Symbol,
		startPrice,
	)

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()
	sig, err := s.sendAndConfirm(txCtx, []solana.Instruction{ix})
	if err != nil {
		// Losing the race to another keeper leaves the round created; treat
		// an existing account for this id as success.
		if fresh, fetchErr := s.fetchRound(ctx, roundID); fetchErr == nil && fresh != nil {
			s.logger.Info("round already started elsewhere", "round_id", roundID)
			return solana.Signature{}, nil
		}
		return solana.Signature{}, fmt.Errorf("start_round: %w", err)
	}
	metricRoundsStarted.Inc()

	s.logger.Info("round started",
		"round_id", roundID,
		"asset", asset.Symbol,
		"start_price", startPrice,
		"signature", sig,
	)

	if s.announcer != nil {
		if fresh, err := s.fetchRound(ctx, roundID); err == nil {
			s.announcer.AnnounceRoundStarted(ctx, fresh)
		} else {
			// Account not readable yet at this commitment; announce from the
			// configured schedule instead.
			now := time.Now().Unix()
			s.announcer.AnnounceRoundStarted(ctx, &lrc.Round{
				RoundID:        roundID,
				AssetSymbol:    asset.Symbol,
				StartPrice:     startPrice,
				StartTime:      now,
				BettingEndTime: now + int64(s.cfg.BettingWindow/time.Second),
				EndTime:        now + int64(s.cfg.RoundDuration/time.Second),
			})
		}
	}
	return sig, nil
}

type roundAction int

const (
	actionNone roundAction = iota
	actionSettle
	actionPayout
)

// decideRoundAction maps a round's state to the sweep step it needs. Open
// and Locked rounds settle once ended; Settling rounds only need payouts.
func decideRoundAction(round *lrc.Round, now int64) roundAction {
	switch round.Status {
	case lrc.StatusOpen, lrc.StatusLocked:
		if round.Ended(now) {
			return actionSettle
		}
	case lrc.StatusSettling:
		return actionPayout
	case lrc.StatusSettled:
	}
	return actionNone
}

// maybeAnnounceBettingClosed fires a mid-round broadcast the first time the
// keeper observes a running round whose betting window has closed.
func (s *Service) maybeAnnounceBettingClosed(ctx context.Context, round *lrc.Round, now int64) {
	if s.announcer == nil || !s.bettingClosed(round, now) {
		return
	}
	if _, done := s.closedAnnounced[round.RoundID]; done {
		return
	}

	feedID, ok := s.feedBySym[strings.ToUpper(round.AssetSymbol)]
	if !ok {
		return
	}
	price, err := s.fetchPrice(ctx, config.AssetConfig{Symbol: round.AssetSymbol, PythFeedID: feedID})
	if err != nil {
		s.logger.Warn("skipping betting-closed announcement", "round_id", round.RoundID, "err", err)
		return
	}

	s.announcer.AnnounceBettingClosed(ctx, round, price)
	s.closedAnnounced[round.RoundID] = struct{}{}
}

// bettingClosed reports whether a still-running round no longer accepts
// bets. Legacy rounds carry no on-chain betting deadline, so the configured
// window approximates one.
func (s *Service) bettingClosed(round *lrc.Round, now int64) bool {
	switch round.Status {
	case lrc.StatusOpen, lrc.StatusLocked:
	default:
		return false
	}
	if round.Ended(now) {
		return false
	}
	if round.Legacy {
		return now >= round.StartTime+int64(s.cfg.BettingWindow/time.Second)
	}
	return !round.BettingOpen(now)
}

// pickAsset draws a random asset, excluding symbols used within the cooldown
// window. When everything is cooling down the full list is used.
func (s *Service) pickAsset(ctx context.Context, counter uint64) (config.AssetConfig, error) {
	if len(s.cfg.Assets) == 0 {
		return config.AssetConfig{}, fmt.Errorf("no assets configured")
	}

	recent := s.recentlyUsedAssets(ctx, counter)
	pool := availableAssets(s.cfg.Assets, recent)

	s.logger.Debug("asset pool for next round",
		"available", len(pool),
		"total", len(s.cfg.Assets),
		"on_cooldown", len(recent),
	)
	return pool[s.rng.Intn(len(pool))], nil
}

func (s *Service) recentlyUsedAssets(ctx context.Context, counter uint64) map[string]struct{} {
	recent := make(map[string]struct{})
	lookback := uint64(s.cfg.AssetCooldown)
	if lookback > counter {
		lookback = counter
	}

	for i := uint64(1); i <= lookback; i++ {
		round, err := s.fetchRound(ctx, counter-i)
		if err != nil {
			continue
		}
		recent[strings.ToUpper(round.AssetSymbol)] = struct{}{}
	}
	return recent
}

func availableAssets(assets []config.AssetConfig, recent map[string]struct{}) []config.AssetConfig {
	out := make([]config.AssetConfig, 0, len(assets))
	for _, asset := range assets {
		if _, used := recent[strings.ToUpper(asset.Symbol)]; used {
			continue
		}
		out = append(out, asset)
	}
	if len(out) == 0 {
		return assets
	}
	return out
}

func (s *Service) fetchPrice(ctx context.Context, asset config.AssetConfig) (int64, error) {
	var price *pyth.Price
	err := s.pricePolicy.Do(ctx, func(ctx context.Context) error {
		latest, err := s.prices.LatestPrice(ctx, asset.PythFeedID)
		if err != nil {
			return err
		}
		price = latest
		return nil
	})
	if err != nil {
		return 0, err
	}
	return price.Scaled, nil
}

func (s *Service) fetchChainConfig(ctx context.Context) (*lrc.Config, error) {
	resp, err := s.rpc.GetAccountInfoWithOpts(ctx, s.configKey, &rpc.GetAccountInfoOpts{Commitment: s.cfg.Commitment})
	if err != nil {
		return nil, fmt.Errorf("fetch config %s: %w", s.configKey, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, fmt.Errorf("config account %s not found (program=%s, hint: run initialize)", s.configKey, s.cfg.ProgramID)
	}
	chainConfig, err := lrc.DecodeConfig(resp.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", s.configKey, err)
	}
	return chainConfig, nil
}

func (s *Service) fetchRound(ctx context.Context, roundID uint64) (*lrc.Round, error) {
	roundKey, _, err := lrc.DeriveRoundPDA(s.cfg.ProgramID, roundID)
	if err != nil {
		return nil, fmt.Errorf("derive round PDA: %w", err)
	}

	resp, err := s.rpc.GetAccountInfoWithOpts(ctx, roundKey, &rpc.GetAccountInfoOpts{Commitment: s.cfg.Commitment})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%w: round %d does not exist", errSkipRound, roundID)
		}
		return nil, fmt.Errorf("fetch round %d: %w", roundID, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, fmt.Errorf("%w: round %d does not exist", errSkipRound, roundID)
	}

	round, err := lrc.DecodeRound(resp.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode round %d: %w", roundID, err)
	}
	return round, nil
}

func (s *Service) getClusterUnixTime(ctx context.Context) int64 {
	slot, err := s.rpc.GetSlot(ctx, s.cfg.Commitment)
	if err != nil {
		s.logger.Warn("using local clock because getSlot failed", "err", err)
		return time.Now().Unix()
	}

	blockTime, err := s.rpc.GetBlockTime(ctx, slot)
	if err != nil || blockTime == nil {
		s.logger.Warn("using local clock because getBlockTime unavailable", "slot", slot, "err", err)
		return time.Now().Unix()
	}

	return int64(*blockTime)
}

// sendAndConfirm signs and submits one transaction, prepending compute
// budget instructions when configured, and blocks until confirmation. The
// context must carry a deadline; callers bound it with TxTimeout.
func (s *Service) sendAndConfirm(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	prefixed := make([]solana.Instruction, 0, len(instructions)+2)
	if s.cfg.ComputeUnitLimit > 0 {
		cuLimitIx, err := computebudget.NewSetComputeUnitLimitInstruction(s.cfg.ComputeUnitLimit).ValidateAndBuild()
		if err != nil {
			return solana.Signature{}, fmt.Errorf("build compute unit limit instruction: %w", err)
		}
		prefixed = append(prefixed, cuLimitIx)
	}
	if s.cfg.ComputeUnitPriceMicroLamports > 0 {
		cuPriceIx, err := computebudget.NewSetComputeUnitPriceInstruction(s.cfg.ComputeUnitPriceMicroLamports).ValidateAndBuild()
		if err != nil {
			return solana.Signature{}, fmt.Errorf("build compute unit price instruction: %w", err)
		}
		prefixed = append(prefixed, cuPriceIx)
	}
	prefixed = append(prefixed, instructions...)

	signature, err := s.sendTransaction(ctx, prefixed)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := s.waitForConfirmation(ctx, signature); err != nil {
		return solana.Signature{}, fmt.Errorf("confirm %s: %w", signature, err)
	}
	return signature, nil
}

func (s *Service) sendTransaction(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	recent, err := s.rpc.GetLatestBlockhash(ctx, s.cfg.Commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(s.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if s.signer.PublicKey().Equals(key) {
			return &s.signer
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	opts := rpc.TransactionOpts{
		SkipPreflight:       s.cfg.SkipPreflight,
		PreflightCommitment: s.cfg.Commitment,
	}
	if s.cfg.MaxRetries != nil {
		retries := *s.cfg.MaxRetries
		opts.MaxRetries = &retries
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (s *Service) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(700 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, err := s.rpc.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				continue
			}
			if len(result.Value) == 0 || result.Value[0] == nil {
				continue
			}
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction failed: %v", status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}
