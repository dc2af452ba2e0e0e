package lrc

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account discriminators, sha256("account:<Name>")[0:8]. Used for routing and
// getProgramAccounts memcmp filters only.
var (
	AccountConfig = accountDiscriminator("Config")
	AccountRound  = accountDiscriminator("Round")
	AccountBet    = accountDiscriminator("Bet")
)

var (
	ErrRecordTooShort   = errors.New("record too short")
	ErrWrongAccountType = errors.New("wrong account type")
	ErrInvalidRecord    = errors.New("invalid record")
)

// Minimum Round body length after the asset symbol, per schema generation.
// The current generation adds betting_end_time and the two weighted pools
// (24 bytes) over the legacy one; generation is detected from this length.
const (
	roundBodyLenCurrent = 83
	roundBodyLenLegacy  = 59
)

type RoundStatus uint8

const (
	StatusOpen RoundStatus = iota
	StatusLocked
	StatusSettling
	StatusSettled
)

func (s RoundStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusLocked:
		return "locked"
	case StatusSettling:
		return "settling"
	case StatusSettled:
		return "settled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

type Side uint8

const (
	// SideShort wins when the end price closes below the start price.
	SideShort Side = 0
	// SideLong wins when the end price closes at or above the start price.
	SideLong Side = 1
)

func (s Side) String() string {
	if s == SideShort {
		return "SHORT"
	}
	return "LONG"
}

func (s Side) Opposite() Side {
	if s == SideShort {
		return SideLong
	}
	return SideShort
}

type Config struct {
	Admin          solana.PublicKey
	FeeBps         uint16
	ReferrerFeeBps uint16
	MinBetLamports uint64
	MaxBetLamports uint64
	Treasury       solana.PublicKey
	RoundCounter   uint64
	Bump           uint8
}

// FeeSplit returns the treasury and referrer shares of the placement fee for
// the given pre-fee amount. Referrer share is carved out of the total fee.
func (c *Config) FeeSplit(amount uint64, hasReferrer bool) (treasury uint64, referrer uint64) {
	totalFee := mulDivFloorSaturating(amount, uint64(c.FeeBps), bpsDenom)
	if hasReferrer && c.ReferrerFeeBps > 0 {
		referrer = mulDivFloorSaturating(amount, uint64(c.ReferrerFeeBps), bpsDenom)
		if referrer > totalFee {
			referrer = totalFee
		}
		return totalFee - referrer, referrer
	}
	return totalFee, 0
}

type Round struct {
	RoundID           uint64
	AssetSymbol       string
	StartPrice        int64
	EndPrice          int64
	StartTime         int64
	BettingEndTime    int64
	EndTime           int64
	Status            RoundStatus
	ShortPool         uint64
	LongPool          uint64
	ShortWeightedPool uint64
	LongWeightedPool  uint64
	BetCount          uint32
	PayoutsProcessed  uint32
	WinningSide       *Side
	Bump              uint8

	// Legacy marks a record decoded from the pre-weighted-pool layout.
	Legacy bool
}

func (r *Round) TotalPool() uint64 {
	return r.ShortPool + r.LongPool
}

func (r *Round) Ended(now int64) bool {
	return now >= r.EndTime
}

func (r *Round) BettingOpen(now int64) bool {
	return r.Status == StatusOpen && now < r.BettingEndTime
}

type Bet struct {
	RoundID        uint64
	Bettor         solana.PublicKey
	Side           Side
	Amount         uint64
	OriginalAmount uint64
	BetTime        int64
	Weight         uint64
	BetIndex       uint32
	PaidOut        bool
	Referrer       *solana.PublicKey
	Bump           uint8
}

func DecodeConfig(data []byte) (*Config, error) {
	dec, err := newAccountDecoder(data, AccountConfig, "Config")
	if err != nil {
		return nil, err
	}
	if dec.Remaining() < 93 {
		return nil, fmt.Errorf("%w: config body is %d bytes", ErrRecordTooShort, dec.Remaining())
	}

	out := &Config{}
	if out.Admin, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if out.FeeBps, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, err
	}
	if out.ReferrerFeeBps, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, err
	}
	if out.MinBetLamports, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.MaxBetLamports, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.Treasury, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if out.RoundCounter, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.Bump, err = dec.ReadByte(); err != nil {
		return nil, err
	}
	// Trailing bytes (account padding) are tolerated.
	return out, nil
}

func DecodeRound(data []byte) (*Round, error) {
	dec, err := newAccountDecoder(data, AccountRound, "Round")
	if err != nil {
		return nil, err
	}

	out := &Round{}
	if out.RoundID, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("%w: round id: %v", ErrRecordTooShort, err)
	}
	if out.AssetSymbol, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("%w: asset symbol: %v", ErrRecordTooShort, err)
	}

	// Generation detection by body length after the variable-length symbol.
	body := dec.Remaining()
	switch {
	case body >= roundBodyLenCurrent:
	case body >= roundBodyLenLegacy:
		out.Legacy = true
	default:
		return nil, fmt.Errorf("%w: round body is %d bytes, need %d (legacy) or %d", ErrRecordTooShort, body, roundBodyLenLegacy, roundBodyLenCurrent)
	}

	if out.StartPrice, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, err
	}
	if out.EndPrice, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, err
	}
	if out.StartTime, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, err
	}
	if !out.Legacy {
		if out.BettingEndTime, err = dec.ReadInt64(bin.LE); err != nil {
			return nil, err
		}
	}
	if out.EndTime, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, err
	}
	if out.Legacy {
		// The legacy layout had no separate betting close; betting ran to
		// the end of the round.
		out.BettingEndTime = out.EndTime
	}

	status, err := dec.ReadByte()
	if err != nil {
		return nil, err
	}
	if status > uint8(StatusSettled) {
		return nil, fmt.Errorf("%w: round status %d", ErrInvalidRecord, status)
	}
	out.Status = RoundStatus(status)

	if out.ShortPool, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.LongPool, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.Legacy {
		// No weighted pools on the wire: all legacy bets carried weight 1.0.
		out.ShortWeightedPool = out.ShortPool
		out.LongWeightedPool = out.LongPool
	} else {
		if out.ShortWeightedPool, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		if out.LongWeightedPool, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
	}

	if out.BetCount, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, err
	}
	if out.PayoutsProcessed, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, err
	}
	if out.WinningSide, err = readOptionalSide(dec); err != nil {
		return nil, err
	}
	if out.Bump, err = dec.ReadByte(); err != nil {
		return nil, err
	}
	return out, nil
}

func DecodeBet(data []byte) (*Bet, error) {
	dec, err := newAccountDecoder(data, AccountBet, "Bet")
	if err != nil {
		return nil, err
	}
	if dec.Remaining() < 80 {
		return nil, fmt.Errorf("%w: bet body is %d bytes", ErrRecordTooShort, dec.Remaining())
	}

	out := &Bet{}
	if out.RoundID, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.Bettor, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	side, err := dec.ReadByte()
	if err != nil {
		return nil, err
	}
	if side > uint8(SideLong) {
		return nil, fmt.Errorf("%w: bet side %d", ErrInvalidRecord, side)
	}
	out.Side = Side(side)
	if out.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.OriginalAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.BetTime, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, err
	}
	if out.Weight, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if out.BetIndex, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, err
	}
	if out.PaidOut, err = dec.ReadBool(); err != nil {
		return nil, err
	}

	hasReferrer, err := dec.ReadByte()
	if err != nil {
		return nil, err
	}
	switch hasReferrer {
	case 0:
	case 1:
		referrer, err := readPublicKey(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: referrer: %v", ErrRecordTooShort, err)
		}
		out.Referrer = &referrer
	default:
		return nil, fmt.Errorf("%w: referrer option discriminant %d", ErrInvalidRecord, hasReferrer)
	}
	if out.Bump, err = dec.ReadByte(); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeConfig renders a Config in the current wire layout.
func EncodeConfig(c *Config) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(AccountConfig[:], false)
	_ = enc.WriteBytes(c.Admin[:], false)
	_ = enc.WriteUint16(c.FeeBps, bin.LE)
	_ = enc.WriteUint16(c.ReferrerFeeBps, bin.LE)
	_ = enc.WriteUint64(c.MinBetLamports, bin.LE)
	_ = enc.WriteUint64(c.MaxBetLamports, bin.LE)
	_ = enc.WriteBytes(c.Treasury[:], false)
	_ = enc.WriteUint64(c.RoundCounter, bin.LE)
	_ = enc.WriteByte(c.Bump)
	return buf.Bytes()
}

// EncodeRound renders a Round in the layout matching its generation flag.
func EncodeRound(r *Round) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(AccountRound[:], false)
	_ = enc.WriteUint64(r.RoundID, bin.LE)
	_ = enc.WriteString(r.AssetSymbol)
	_ = enc.WriteInt64(r.StartPrice, bin.LE)
	_ = enc.WriteInt64(r.EndPrice, bin.LE)
	_ = enc.WriteInt64(r.StartTime, bin.LE)
	if !r.Legacy {
		_ = enc.WriteInt64(r.BettingEndTime, bin.LE)
	}
	_ = enc.WriteInt64(r.EndTime, bin.LE)
	_ = enc.WriteByte(uint8(r.Status))
	_ = enc.WriteUint64(r.ShortPool, bin.LE)
	_ = enc.WriteUint64(r.LongPool, bin.LE)
	if !r.Legacy {
		_ = enc.WriteUint64(r.ShortWeightedPool, bin.LE)
		_ = enc.WriteUint64(r.LongWeightedPool, bin.LE)
	}
	_ = enc.WriteUint32(r.BetCount, bin.LE)
	_ = enc.WriteUint32(r.PayoutsProcessed, bin.LE)
	if r.WinningSide == nil {
		_ = enc.WriteByte(0)
	} else {
		_ = enc.WriteByte(1)
		_ = enc.WriteByte(uint8(*r.WinningSide))
	}
	_ = enc.WriteByte(r.Bump)
	return buf.Bytes()
}

// EncodeBet renders a Bet in the current wire layout.
func EncodeBet(b *Bet) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(AccountBet[:], false)
	_ = enc.WriteUint64(b.RoundID, bin.LE)
	_ = enc.WriteBytes(b.Bettor[:], false)
	_ = enc.WriteByte(uint8(b.Side))
	_ = enc.WriteUint64(b.Amount, bin.LE)
	_ = enc.WriteUint64(b.OriginalAmount, bin.LE)
	_ = enc.WriteInt64(b.BetTime, bin.LE)
	_ = enc.WriteUint64(b.Weight, bin.LE)
	_ = enc.WriteUint32(b.BetIndex, bin.LE)
	_ = enc.WriteBool(b.PaidOut)
	if b.Referrer == nil {
		_ = enc.WriteByte(0)
	} else {
		_ = enc.WriteByte(1)
		_ = enc.WriteBytes(b.Referrer[:], false)
	}
	_ = enc.WriteByte(b.Bump)
	return buf.Bytes()
}

func newAccountDecoder(data []byte, want [8]byte, name string) (*bin.Decoder, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes, missing type tag", ErrRecordTooShort, len(data))
	}
	if !bytes.Equal(data[:8], want[:]) {
		return nil, fmt.Errorf("%w: expected %s", ErrWrongAccountType, name)
	}
	return bin.NewBorshDecoder(data[8:]), nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func readOptionalSide(dec *bin.Decoder) (*Side, error) {
	disc, err := dec.ReadByte()
	if err != nil {
		return nil, err
	}
	switch disc {
	case 0:
		return nil, nil
	case 1:
		raw, err := dec.ReadByte()
		if err != nil {
			return nil, err
		}
		if raw > uint8(SideLong) {
			return nil, fmt.Errorf("%w: winning side %d", ErrInvalidRecord, raw)
		}
		side := Side(raw)
		return &side, nil
	default:
		return nil, fmt.Errorf("%w: winning side option discriminant %d", ErrInvalidRecord, disc)
	}
}

func accountDiscriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("account:" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}
