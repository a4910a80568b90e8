package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"bondswap/core"
	"bondswap/core/genesis"
	"bondswap/crypto"
	"bondswap/native/pool"
	"bondswap/observability/logging"
	"bondswap/storage"
	"bondswap/storage/audit"
)

var (
	testOwner = crypto.AddressFromLabel("owner")
	testAlice = crypto.AddressFromLabel("alice")
)

func bootstrappedNode(t *testing.T) *core.Node {
	t.Helper()
	spec := &genesis.GenesisSpec{
		GenesisTime:     "2025-01-01T00:00:00Z",
		Owner:           testOwner.String(),
		Treasury:        crypto.AddressFromLabel("treasury").String(),
		SettlementDenom: "uusdc",
		PayoutToken: genesis.PayoutTokenSpec{
			Name: "Bond Payout", Symbol: "BPT", Decimals: 6, Supply: "10000000",
		},
		Alloc: map[string]map[string]string{
			testOwner.String(): {"uusdc": "1000000"},
		},
		Pool: genesis.LedgerSpec{
			LockSeconds: 86400, Discount: 5, TxFee: 3, PlatformFee: 10, DailyVestingAmount: "1000000",
		},
	}
	require.NoError(t, spec.Validate())
	node, err := core.NewNode(storage.NewMemDB(), logging.Discard())
	require.NoError(t, err)
	_, err = node.Bootstrap(context.Background(), spec)
	require.NoError(t, err)
	return node
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServerDeploymentAndQuery(t *testing.T) {
	node := bootstrappedNode(t)
	h := newServer(node, nil, serverOptions{}, logging.Discard())

	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/deployment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dep map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))
	require.NotEmpty(t, dep["pool"])
	require.NotEmpty(t, dep["pool_ledger"])

	rec = doRequest(t, h, http.MethodPost, "/query/pool", `{"config":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg pool.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	require.True(t, cfg.Owner.Equal(testOwner))
	require.Equal(t, dep["pool_ledger"], cfg.BondingContract.String())

	rec = doRequest(t, h, http.MethodPost, "/query/unknown", `{"config":{}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/journal", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRequestsAreJournaled(t *testing.T) {
	node := bootstrappedNode(t)
	dsn, err := audit.FileDSN(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	journal, err := audit.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })
	node.Host().SetJournal(journal)
	h := newServer(node, journal, serverOptions{AllowAdmin: true}, logging.Discard())

	fund := `{"kind":"fund","sender":"` + testAlice.String() + `","funds":[{"denom":"uusdc","amount":"5000"}]}`
	rec := doRequest(t, h, http.MethodPost, "/requests", fund)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	swap := `{"sender":"` + testAlice.String() + `","contract":"pool","msg":{"swap":{"input_token":"token1","input_amount":"0","min_output":"0","fee_amount":"0"}}}`
	rec = doRequest(t, h, http.MethodPost, "/requests", swap)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/journal?failed=true&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "swap", entries[0].Action)
	require.NotEmpty(t, entries[0].Error)
}

func TestServerRejectsFundAndAdvanceByDefault(t *testing.T) {
	node := bootstrappedNode(t)
	h := newServer(node, nil, serverOptions{}, logging.Discard())
	before := node.Host().Block()

	bodies := []string{
		`{"kind":"advance","seconds":31536000}`,
		`{"kind":"fund","sender":"` + testAlice.String() + `","funds":[{"denom":"uusdc","amount":"5000"}]}`,
		`{"sender":"` + testAlice.String() + `","contract":"pool","seconds":31536000,"msg":{"swap":{"input_token":"token1","input_amount":"1","min_output":"0","fee_amount":"0"}}}`,
	}
	for _, body := range bodies {
		rec := doRequest(t, h, http.MethodPost, "/requests", body)
		require.Equal(t, http.StatusForbidden, rec.Code, body)
	}
	require.Equal(t, before, node.Host().Block())
	bal, err := node.Host().Balance(testAlice, "uusdc")
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestServerBindsSenderToTokenSubject(t *testing.T) {
	node := bootstrappedNode(t)
	h := newServer(node, nil, serverOptions{
		Auth: newAuthenticator("topsecret", "", logging.Discard()),
	}, logging.Discard())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testAlice.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("topsecret"))
	require.NoError(t, err)

	send := func(sender string) int {
		body := `{"sender":"` + sender + `","contract":"pool_ledger","msg":{"unbond":{}}}`
		req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusForbidden, send(testOwner.String()))
	require.NotEqual(t, http.StatusForbidden, send(testAlice.String()))
}

func TestServerAnnotatesRequestSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	h := newServer(bootstrappedNode(t), nil, serverOptions{}, logging.Discard())
	rec := doRequest(t, h, http.MethodPost, "/requests", `{"kind":"advance","seconds":60}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "advance", attrs["bondswap.request.kind"])
	require.NotEmpty(t, spans[0].Events())
}

func TestReplayCountsRejections(t *testing.T) {
	node := bootstrappedNode(t)
	before := node.Host().Block()

	var in bytes.Buffer
	in.WriteString("# warm up\n\n")
	in.WriteString(`{"kind":"advance","seconds":60}` + "\n")
	in.WriteString(`{"kind":"fund","sender":"` + testAlice.String() + `","funds":[{"denom":"uusdc","amount":"10"}]}` + "\n")
	in.WriteString(`{"sender":"` + testAlice.String() + `","contract":"missing","msg":{"unbond":{}}}` + "\n")

	stats, err := replay(context.Background(), node, &in, logging.Discard())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Applied)
	require.Equal(t, 1, stats.Rejected)
	require.Equal(t, before.Height+1, node.Host().Block().Height)
	require.Equal(t, before.Time+60, node.Host().Block().Time)

	bal, err := node.Host().Balance(testAlice, "uusdc")
	require.NoError(t, err)
	require.Equal(t, "10", bal.String())
}

func TestReplayStopsOnMalformedLine(t *testing.T) {
	node := bootstrappedNode(t)
	_, err := replay(context.Background(), node, strings.NewReader("{not json}\n"), logging.Discard())
	require.ErrorContains(t, err, "replay line 1")
}
