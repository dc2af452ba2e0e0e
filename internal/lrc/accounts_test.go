package lrc

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func testRound() *Round {
	winning := SideLong
	return &Round{
		RoundID:           42,
		AssetSymbol:       "WIF",
		StartPrice:        250_000_000,
		EndPrice:          275_000_000,
		StartTime:         1_700_000_000,
		BettingEndTime:    1_700_043_200,
		EndTime:           1_700_086_400,
		Status:            StatusSettling,
		ShortPool:         1_000_000_000,
		LongPool:          4_000_000_000,
		ShortWeightedPool: 1_200_000_000,
		LongWeightedPool:  6_000_000_000,
		BetCount:          7,
		PayoutsProcessed:  3,
		WinningSide:       &winning,
		Bump:              254,
	}
}

func TestRoundRoundTrip(t *testing.T) {
	in := testRound()
	out, err := DecodeRound(EncodeRound(in))
	if err != nil {
		t.Fatalf("DecodeRound: %v", err)
	}
	if out.Legacy {
		t.Fatal("current-generation record decoded as legacy")
	}
	if out.RoundID != in.RoundID || out.AssetSymbol != in.AssetSymbol ||
		out.StartPrice != in.StartPrice || out.EndPrice != in.EndPrice ||
		out.StartTime != in.StartTime || out.BettingEndTime != in.BettingEndTime ||
		out.EndTime != in.EndTime || out.Status != in.Status ||
		out.ShortPool != in.ShortPool || out.LongPool != in.LongPool ||
		out.ShortWeightedPool != in.ShortWeightedPool || out.LongWeightedPool != in.LongWeightedPool ||
		out.BetCount != in.BetCount || out.PayoutsProcessed != in.PayoutsProcessed ||
		out.Bump != in.Bump {
		t.Fatalf("round changed across encode/decode:\nin:  %+v\nout: %+v", in, out)
	}
	if out.WinningSide == nil || *out.WinningSide != *in.WinningSide {
		t.Fatalf("winning side changed: %v vs %v", out.WinningSide, in.WinningSide)
	}
}

func TestRoundRoundTripNoWinner(t *testing.T) {
	in := testRound()
	in.WinningSide = nil
	in.Status = StatusOpen
	out, err := DecodeRound(EncodeRound(in))
	if err != nil {
		t.Fatalf("DecodeRound: %v", err)
	}
	if out.WinningSide != nil {
		t.Fatalf("expected no winning side, got %v", *out.WinningSide)
	}
}

func TestDecodeLegacyRoundDefaults(t *testing.T) {
	winning := SideShort
	in := &Round{
		RoundID:     7,
		AssetSymbol: "PENGUCOINX", // 10 chars, the layout maximum
		StartPrice:  123_456_789,
		EndPrice:    100_000_000,
		StartTime:   1_690_000_000,
		EndTime:     1_690_086_400,
		Status:      StatusSettled,
		ShortPool:   5_000_000,
		LongPool:    9_000_000,
		BetCount:    2,
		WinningSide: &winning,
		Bump:        255,
		Legacy:      true,
	}

	raw := EncodeRound(in)
	if len(raw) != 90 {
		t.Fatalf("legacy fixture is %d bytes, want 90", len(raw))
	}

	out, err := DecodeRound(raw)
	if err != nil {
		t.Fatalf("DecodeRound: %v", err)
	}
	if !out.Legacy {
		t.Fatal("legacy record not detected")
	}
	if out.BettingEndTime != out.EndTime {
		t.Fatalf("legacy betting end = %d, want end time %d", out.BettingEndTime, out.EndTime)
	}
	if out.ShortWeightedPool != out.ShortPool || out.LongWeightedPool != out.LongPool {
		t.Fatalf("legacy weighted pools %d/%d, want raw pools %d/%d",
			out.ShortWeightedPool, out.LongWeightedPool, out.ShortPool, out.LongPool)
	}
}

func TestDecodeRoundTooShort(t *testing.T) {
	raw := EncodeRound(testRound())
	_, err := DecodeRound(raw[:40])
	if !errors.Is(err, ErrRecordTooShort) {
		t.Fatalf("expected ErrRecordTooShort, got %v", err)
	}

	_, err = DecodeRound(raw[:5])
	if !errors.Is(err, ErrRecordTooShort) {
		t.Fatalf("expected ErrRecordTooShort for missing tag, got %v", err)
	}
}

func TestDecodeRoundToleratesTrailingBytes(t *testing.T) {
	raw := append(EncodeRound(testRound()), 0, 0, 0, 0)
	out, err := DecodeRound(raw)
	if err != nil {
		t.Fatalf("trailing padding should be tolerated: %v", err)
	}
	if out.RoundID != 42 {
		t.Fatalf("round id = %d, want 42", out.RoundID)
	}
}

func TestDecodeRoundWrongAccountType(t *testing.T) {
	cfg := EncodeConfig(&Config{RoundCounter: 1})
	_, err := DecodeRound(cfg)
	if !errors.Is(err, ErrWrongAccountType) {
		t.Fatalf("expected ErrWrongAccountType, got %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	in := &Config{
		Admin:          solana.NewWallet().PublicKey(),
		FeeBps:         250,
		ReferrerFeeBps: 100,
		MinBetLamports: 10_000_000,
		MaxBetLamports: 5_000_000_000,
		Treasury:       solana.NewWallet().PublicKey(),
		RoundCounter:   1337,
		Bump:           253,
	}
	out, err := DecodeConfig(EncodeConfig(in))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if *out != *in {
		t.Fatalf("config changed across encode/decode:\nin:  %+v\nout: %+v", in, out)
	}
}

func TestBetRoundTrip(t *testing.T) {
	referrer := solana.NewWallet().PublicKey()
	cases := []*Bet{
		{
			RoundID:        42,
			Bettor:         solana.NewWallet().PublicKey(),
			Side:           SideLong,
			Amount:         965_000_000,
			OriginalAmount: 1_000_000_000,
			BetTime:        1_700_001_000,
			Weight:         150,
			BetIndex:       3,
			PaidOut:        false,
			Referrer:       &referrer,
			Bump:           252,
		},
		{
			RoundID:        42,
			Bettor:         solana.NewWallet().PublicKey(),
			Side:           SideShort,
			Amount:         100,
			OriginalAmount: 103,
			BetTime:        1_700_040_000,
			Weight:         100,
			BetIndex:       0,
			PaidOut:        true,
			Bump:           251,
		},
	}

	for _, in := range cases {
		out, err := DecodeBet(EncodeBet(in))
		if err != nil {
			t.Fatalf("DecodeBet: %v", err)
		}
		if out.RoundID != in.RoundID || out.Bettor != in.Bettor || out.Side != in.Side ||
			out.Amount != in.Amount || out.OriginalAmount != in.OriginalAmount ||
			out.BetTime != in.BetTime || out.Weight != in.Weight ||
			out.BetIndex != in.BetIndex || out.PaidOut != in.PaidOut || out.Bump != in.Bump {
			t.Fatalf("bet changed across encode/decode:\nin:  %+v\nout: %+v", in, out)
		}
		switch {
		case in.Referrer == nil && out.Referrer != nil:
			t.Fatal("unexpected referrer after decode")
		case in.Referrer != nil && (out.Referrer == nil || *out.Referrer != *in.Referrer):
			t.Fatalf("referrer changed: %v vs %v", out.Referrer, in.Referrer)
		}
	}
}

func TestFeeSplit(t *testing.T) {
	cfg := &Config{FeeBps: 250, ReferrerFeeBps: 100}

	treasury, referrer := cfg.FeeSplit(1_000_000_000, false)
	if treasury != 25_000_000 || referrer != 0 {
		t.Fatalf("no-referrer split = %d/%d, want 25000000/0", treasury, referrer)
	}

	treasury, referrer = cfg.FeeSplit(1_000_000_000, true)
	if treasury != 15_000_000 || referrer != 10_000_000 {
		t.Fatalf("referrer split = %d/%d, want 15000000/10000000", treasury, referrer)
	}
}
