package indexer

import "testing"

func TestRebindPostgresPlaceholders(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "simple",
			in:   "SELECT * FROM rounds WHERE round_id = ? AND status = ?",
			want: "SELECT * FROM rounds WHERE round_id = $1 AND status = $2",
		},
		{
			name: "question mark inside string literal",
			in:   "SELECT * FROM rounds WHERE status = 'open?' AND round_id = ?",
			want: "SELECT * FROM rounds WHERE status = 'open?' AND round_id = $1",
		},
		{
			name: "escaped quote inside string literal",
			in:   "SELECT 'it''s ?' , ?",
			want: "SELECT 'it''s ?' , $1",
		},
		{
			name: "no placeholders",
			in:   "SELECT COUNT(*) FROM bets",
			want: "SELECT COUNT(*) FROM bets",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rebindPostgresPlaceholders(tc.in); got != tc.want {
				t.Fatalf("rebind mismatch:\n got: %s\nwant: %s", got, tc.want)
			}
		})
	}
}

func TestNormalizePagination(t *testing.T) {
	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, defaultPageLimit, 0},
		{-5, -3, defaultPageLimit, 0},
		{25, 10, 25, 10},
		{10_000, 0, maxPageLimit, 0},
	}

	for _, tc := range cases {
		gotLimit, gotOffset := normalizePagination(tc.limit, tc.offset)
		if gotLimit != tc.wantLimit || gotOffset != tc.wantOffset {
			t.Fatalf("normalizePagination(%d, %d) = (%d, %d), want (%d, %d)",
				tc.limit, tc.offset, gotLimit, gotOffset, tc.wantLimit, tc.wantOffset)
		}
	}
}
