package rpc

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
	"yakisoba/native/vault"
	"yakisoba/state"
	"yakisoba/storage"
)

var (
	testOwner = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testVault = common.HexToAddress("0x0000000000000000000000000000000000000002")
	testAsset = common.HexToAddress("0x0000000000000000000000000000000000000003")
	testAlice = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

const testUnit = int64(1_000_000)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	t.Setenv("YAKISOBA_RPC_TOKEN", "secret")

	manager := state.NewManager(storage.NewMemDB())
	engine := vault.NewEngine(testOwner, testVault)
	engine.SetState(manager)
	engine.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })

	fund := func(addr common.Address, amount int64) {
		acct := types.NewAccount(addr)
		acct.Balance = big.NewInt(amount)
		acct.NativeBalance = big.NewInt(amount)
		if err := manager.PutAccount(addr, acct); err != nil {
			t.Fatalf("fund %s: %v", addr.Hex(), err)
		}
	}
	fund(testOwner, 1_000*testUnit)
	fund(testAlice, 1_000*testUnit)

	cfg := vault.VaultConfig{
		Asset:         testAsset,
		AssetDecimals: 6,
		LocalChainID:  1,
		SeedDeposit:   big.NewInt(100 * testUnit),
	}
	if err := engine.Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := engine.Unpause(testOwner); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := engine.SetMaxTotalAssets(testOwner, big.NewInt(10_000*testUnit)); err != nil {
		t.Fatalf("set cap: %v", err)
	}

	srv := NewServer(engine, nil, Options{RequestsPerMinute: 6000, Burst: 100, Logger: slog.Default()})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func call(t *testing.T, ts *httptest.Server, token, method string, params interface{}) RPCResponse {
	t.Helper()
	var raw []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		raw = []json.RawMessage{encoded}
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: raw, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var envelope RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

func TestGetStateReportsSeededVault(t *testing.T) {
	_, ts := newTestServer(t)

	resp := call(t, ts, "", "vault_getState", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	var result VaultStateResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.TotalSupply != "100000000" {
		t.Fatalf("total supply = %s", result.TotalSupply)
	}
	if result.SharePrice != "1000000" {
		t.Fatalf("share price = %s", result.SharePrice)
	}
	if result.Paused {
		t.Fatalf("vault should be live")
	}
}

func TestMutationsRequireToken(t *testing.T) {
	_, ts := newTestServer(t)

	params := depositParams{Caller: testAlice.Hex(), Receiver: testAlice.Hex(), Amount: "50000000"}
	resp := call(t, ts, "", "vault_deposit", params)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}

	resp = call(t, ts, "wrong-token", "vault_deposit", params)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized for bad token, got %+v", resp.Error)
	}

	resp = call(t, ts, "secret", "vault_deposit", params)
	if resp.Error != nil {
		t.Fatalf("authorized deposit failed: %+v", resp.Error)
	}
}

func TestDepositThenBalance(t *testing.T) {
	_, ts := newTestServer(t)

	deposit := depositParams{Caller: testAlice.Hex(), Receiver: testAlice.Hex(), Amount: "200000000"}
	resp := call(t, ts, "secret", "vault_deposit", deposit)
	if resp.Error != nil {
		t.Fatalf("deposit: %+v", resp.Error)
	}

	resp = call(t, ts, "", "vault_getBalance", addressParams{Address: testAlice.Hex()})
	if resp.Error != nil {
		t.Fatalf("balance: %+v", resp.Error)
	}
	payload, _ := json.Marshal(resp.Result)
	var result BalanceResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if result.Shares != "200000000" {
		t.Fatalf("shares = %s", result.Shares)
	}
	if result.AssetValue != "200000000" {
		t.Fatalf("asset value = %s", result.AssetValue)
	}
}

func TestPreviewAndTypedErrorData(t *testing.T) {
	_, ts := newTestServer(t)

	resp := call(t, ts, "", "vault_previewDeposit", amountParams{Amount: "1000000"})
	if resp.Error != nil {
		t.Fatalf("preview: %+v", resp.Error)
	}

	// Deposits beyond the cap surface the remaining headroom in the error data.
	over := depositParams{Caller: testAlice.Hex(), Receiver: testAlice.Hex(), Amount: "99999000000000"}
	resp = call(t, ts, "secret", "vault_deposit", over)
	if resp.Error == nil || resp.Error.Code != codeServerError {
		t.Fatalf("expected server error, got %+v", resp.Error)
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected error data, got %T", resp.Error.Data)
	}
	if _, ok := data["max"]; !ok {
		t.Fatalf("missing max in error data: %v", data)
	}
}

func TestPoolMethodsRequirePoolEngine(t *testing.T) {
	_, ts := newTestServer(t)

	params := poolAmountParams{Caller: testOwner.Hex(), Amount: "1000000"}
	resp := call(t, ts, "", "vault_enablePool", params)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	for _, method := range []string{"vault_enablePool", "vault_increaseLiquidity", "vault_decreaseLiquidity"} {
		resp := call(t, ts, "secret", method, params)
		if resp.Error == nil || resp.Error.Code != codeServerError {
			t.Fatalf("%s: expected server error, got %+v", method, resp.Error)
		}
	}

	// Installing a pool address without a wired pool engine is refused.
	resp = call(t, ts, "secret", "vault_migratePool", migratePoolParams{Caller: testOwner.Hex(), Pool: testAsset.Hex()})
	if resp.Error == nil || resp.Error.Code != codeServerError {
		t.Fatalf("expected server error, got %+v", resp.Error)
	}
	// Detaching when nothing is installed still succeeds.
	resp = call(t, ts, "secret", "vault_migratePool", migratePoolParams{Caller: testOwner.Hex()})
	if resp.Error != nil {
		t.Fatalf("detach: %+v", resp.Error)
	}
}

func TestRescueTokenOverRPC(t *testing.T) {
	srv, ts := newTestServer(t)
	stray := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	if err := srv.vault.CreditStrayToken(stray, big.NewInt(4_200)); err != nil {
		t.Fatalf("credit stray: %v", err)
	}

	resp := call(t, ts, "secret", "vault_rescueToken", rescueTokenParams{Caller: testAlice.Hex(), Token: stray.Hex()})
	if resp.Error == nil || resp.Error.Code != codeServerError {
		t.Fatalf("expected owner check, got %+v", resp.Error)
	}

	resp = call(t, ts, "secret", "vault_rescueToken", rescueTokenParams{Caller: testOwner.Hex(), Token: stray.Hex()})
	if resp.Error != nil {
		t.Fatalf("rescue: %+v", resp.Error)
	}
	payload, _ := json.Marshal(resp.Result)
	var result previewResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Amount != "4200" {
		t.Fatalf("swept = %s", result.Amount)
	}
	// A second sweep finds nothing left.
	resp = call(t, ts, "secret", "vault_rescueToken", rescueTokenParams{Caller: testOwner.Hex(), Token: stray.Hex()})
	if resp.Error == nil {
		t.Fatal("expected empty rescue to fail")
	}
}

func TestMethodNotFound(t *testing.T) {
	_, ts := newTestServer(t)
	resp := call(t, ts, "", "vault_unknown", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestInvalidJSONRejected(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var envelope RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", envelope.Error)
	}
}

func TestRateLimiting(t *testing.T) {
	t.Setenv("YAKISOBA_RPC_TOKEN", "secret")
	manager := state.NewManager(storage.NewMemDB())
	engine := vault.NewEngine(testOwner, testVault)
	engine.SetState(manager)
	srv := NewServer(engine, nil, Options{RequestsPerMinute: 60, Burst: 1})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	first := call(t, ts, "", "vault_getState", nil)
	_ = first // outcome irrelevant, soaks the single burst slot

	second := call(t, ts, "", "vault_getState", nil)
	if second.Error == nil || second.Error.Code != codeRateLimited {
		t.Fatalf("expected rate limit, got %+v", second.Error)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
