package venue

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/internal/capture"
	"github.com/web3guy0/fundingbot/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertValue(t *testing.T, field string, got decimal.NullDecimal, want string) {
	t.Helper()
	if !got.Valid {
		t.Errorf("%s = null, want %s", field, want)
		return
	}
	if !got.Decimal.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", field, got.Decimal, want)
	}
}

const extendedPayload = `{
  "status": "OK",
  "data": [
    {"name": "BTC-USD", "marketStats": {"bidPrice": "64000.1", "askPrice": "64000.9", "fundingRate": "0.00001"}},
    {"name": "HYPE-USD", "marketStats": {"bidPrice": "41.231", "askPrice": "41.245", "fundingRate": "0.000125"}}
  ]
}`

func TestParseExtended(t *testing.T) {
	q, err := ParseExtended([]byte(extendedPayload), "HYPE-USD")
	if err != nil {
		t.Fatalf("ParseExtended failed: %v", err)
	}
	if q.Source != types.VenueExtended {
		t.Errorf("Source = %s", q.Source)
	}
	assertValue(t, "Bid", q.Bid, "41.231")
	assertValue(t, "Ask", q.Ask, "41.245")
	assertValue(t, "Funding", q.Funding, "0.0125")
}

func TestParseExtended_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"bare array", `[{"name":"HYPE-USD","marketStats":{"bidPrice":1,"askPrice":2,"fundingRate":0.0001}}]`},
		{"markets key", `{"markets":[{"name":"HYPE-USD","marketStats":{"bidPrice":"1","askPrice":"2","fundingRate":"0.0001"}}]}`},
		{"keyed map", `{"HYPE-USD":{"marketStats":{"bidPrice":"1","askPrice":"2","fundingRate":"0.0001"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseExtended([]byte(tt.payload), "HYPE-USD")
			if err != nil {
				t.Fatalf("ParseExtended failed: %v", err)
			}
			assertValue(t, "Bid", q.Bid, "1")
			assertValue(t, "Ask", q.Ask, "2")
			assertValue(t, "Funding", q.Funding, "0.01")
		})
	}
}

func TestParseExtended_MissingMarket(t *testing.T) {
	// "HYPE" must not match "HYPE-USD"
	q, err := ParseExtended([]byte(extendedPayload), "HYPE")
	if !errors.Is(err, types.ErrInstrumentNotFound) {
		t.Fatalf("err = %v, want ErrInstrumentNotFound", err)
	}
	if !q.Empty() || q.Source != types.VenueExtended {
		t.Errorf("quote = %+v, want empty extended quote", q)
	}
}

func TestParseExtended_MissingField(t *testing.T) {
	q, err := ParseExtended([]byte(`{"data":[{"name":"HYPE-USD","marketStats":{"bidPrice":"41.2","askPrice":"n/a"}}]}`), "HYPE-USD")
	if err != nil {
		t.Fatalf("ParseExtended failed: %v", err)
	}
	assertValue(t, "Bid", q.Bid, "41.2")
	if q.Ask.Valid || q.Funding.Valid {
		t.Errorf("Ask/Funding = %v/%v, want null", q.Ask, q.Funding)
	}
}

const hyperliquidPayload = `[
  {"universe": [{"name": "BTC", "szDecimals": 5}, {"name": "HYPE", "szDecimals": 2}]},
  [
    {"funding": "0.0000125", "midPx": "64000.5", "markPx": "64000.0"},
    {"funding": "-0.00005", "midPx": "41.24", "markPx": "41.23"}
  ]
]`

func TestParseHyperliquid(t *testing.T) {
	q, err := ParseHyperliquid([]byte(hyperliquidPayload), "HYPE", dec("0.01"))
	if err != nil {
		t.Fatalf("ParseHyperliquid failed: %v", err)
	}
	if !q.Synthetic {
		t.Error("Synthetic = false, want true")
	}
	assertValue(t, "Bid", q.Bid, "41.23")
	assertValue(t, "Ask", q.Ask, "41.25")
	assertValue(t, "Funding", q.Funding, "-0.005")
}

func TestParseHyperliquid_MissingCoin(t *testing.T) {
	_, err := ParseHyperliquid([]byte(hyperliquidPayload), "ETH", dec("0.01"))
	if !errors.Is(err, types.ErrInstrumentNotFound) {
		t.Fatalf("err = %v, want ErrInstrumentNotFound", err)
	}
}

func TestParseHyperliquid_NullMid(t *testing.T) {
	payload := `[{"universe":[{"name":"HYPE"}]},[{"funding":"0.00001","midPx":null}]]`
	q, err := ParseHyperliquid([]byte(payload), "HYPE", dec("0.01"))
	if err != nil {
		t.Fatalf("ParseHyperliquid failed: %v", err)
	}
	if q.Bid.Valid || q.Ask.Valid {
		t.Errorf("book = %v/%v, want null", q.Bid, q.Ask)
	}
	assertValue(t, "Funding", q.Funding, "0.001")
}

func TestExtended_Quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, extendedPayload)
	}))
	defer server.Close()

	q := NewExtended(server.URL, "HYPE-USD", 5*time.Second).Quote(context.Background())
	if q.Err != nil {
		t.Fatalf("Err = %v", q.Err)
	}
	assertValue(t, "Bid", q.Bid, "41.231")
	if q.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestHyperliquid_Quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost || !strings.Contains(string(body), "metaAndAssetCtxs") {
			t.Errorf("unexpected request %s %s", r.Method, body)
		}
		io.WriteString(w, hyperliquidPayload)
	}))
	defer server.Close()

	q := NewHyperliquid(server.URL, "HYPE", dec("0.01"), 5*time.Second).Quote(context.Background())
	if q.Err != nil {
		t.Fatalf("Err = %v", q.Err)
	}
	assertValue(t, "Ask", q.Ask, "41.25")
}

func TestSource_ServerErrorGivesEmptyQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	for _, src := range []Source{
		NewExtended(server.URL, "HYPE-USD", time.Second),
		NewHyperliquid(server.URL, "HYPE", dec("0.01"), time.Second),
	} {
		q := src.Quote(context.Background())
		if !q.Empty() {
			t.Errorf("%s: quote = %+v, want empty", src.Venue(), q)
		}
		if q.Source != src.Venue() {
			t.Errorf("%s: Source = %s", src.Venue(), q.Source)
		}
		if !errors.Is(q.Err, types.ErrVenueUnavailable) {
			t.Errorf("%s: Err = %v, want ErrVenueUnavailable", src.Venue(), q.Err)
		}
	}
}

type fakeCapturer struct {
	shots [][]byte
	err   error
	req   capture.Request
}

func (f *fakeCapturer) Capture(ctx context.Context, req capture.Request) ([][]byte, error) {
	f.req = req
	return f.shots, f.err
}

// fakeOCR returns the text associated with each image payload
type fakeOCR struct {
	texts map[string]string
	err   error
	panic bool
}

func (f *fakeOCR) Recognize(ctx context.Context, img []byte) (string, error) {
	if f.panic {
		panic("tesseract crashed")
	}
	return f.texts[string(img)], f.err
}

func lighterOpts() LighterOptions {
	return LighterOptions{
		URL:         "https://app.lighter.xyz/trade/HYPE",
		Viewport:    capture.Viewport{Width: 1920, Height: 1080, ScaleFactor: 2},
		FundingClip: capture.Clip{X: 500, Y: 40, Width: 1000, Height: 90},
		SpreadClip:  capture.Clip{X: 1270, Y: 420, Width: 260, Height: 140},
		Settle:      time.Millisecond,
	}
}

func TestLighter_Quote(t *testing.T) {
	capt := &fakeCapturer{shots: [][]byte{[]byte("funding"), []byte("spread")}}
	rec := &fakeOCR{texts: map[string]string{
		"funding": "Mark Price 41.24  Funding / Countdown  0.0012%  00:41:12",
		"spread":  "412460 120.5\nSpread 0.0030 0.007%\n41.2430 88.1\n",
	}}

	q := NewLighter(lighterOpts(), capt, rec, nil).Quote(context.Background())

	if q.Err != nil {
		t.Fatalf("Err = %v", q.Err)
	}
	assertValue(t, "Funding", q.Funding, "0.0012")
	assertValue(t, "Ask", q.Ask, "41.246")
	assertValue(t, "Bid", q.Bid, "41.243")

	if len(capt.req.Clips) != 2 || capt.req.Clips[1].X != 1270 {
		t.Errorf("capture clips = %+v", capt.req.Clips)
	}
}

func TestLighter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		cap     *fakeCapturer
		ocr     *fakeOCR
		wantErr error
	}{
		{"capture timeout", &fakeCapturer{err: types.ErrTimeout}, &fakeOCR{}, types.ErrTimeout},
		{"short capture", &fakeCapturer{shots: [][]byte{[]byte("x")}}, &fakeOCR{}, types.ErrVenueUnavailable},
		{"ocr error", &fakeCapturer{shots: [][]byte{[]byte("a"), []byte("b")}}, &fakeOCR{err: errors.New("boom")}, nil},
		{"ocr panic", &fakeCapturer{shots: [][]byte{[]byte("a"), []byte("b")}}, &fakeOCR{panic: true}, types.ErrVenueUnavailable},
		{"unreadable text", &fakeCapturer{shots: [][]byte{[]byte("a"), []byte("b")}}, &fakeOCR{texts: map[string]string{}}, types.ErrUnrecoverable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewLighter(lighterOpts(), tt.cap, tt.ocr, nil).Quote(context.Background())
			if !q.Empty() {
				t.Errorf("quote = %+v, want empty", q)
			}
			if q.Source != types.VenueLighter {
				t.Errorf("Source = %s", q.Source)
			}
			if q.Err == nil {
				t.Fatal("Err = nil")
			}
			if tt.wantErr != nil && !errors.Is(q.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", q.Err, tt.wantErr)
			}
		})
	}
}

func TestLighter_DumpsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	opts := lighterOpts()
	opts.DumpDir = dir

	capt := &fakeCapturer{shots: [][]byte{[]byte("funding"), []byte("spread")}}
	rec := &fakeOCR{texts: map[string]string{"funding": "0.0012%", "spread": "x"}}

	q := NewLighter(opts, capt, rec, nil).Quote(context.Background())
	assertValue(t, "Funding", q.Funding, "0.0012")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("dumped %d files, want 4", len(entries))
	}
}
