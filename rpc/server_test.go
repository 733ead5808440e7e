package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"nhooyr.io/websocket"

	"rentacar/core"
	"rentacar/core/events"
	"rentacar/crypto"
	"rentacar/eventlog"
	"rentacar/native/rentacar"
	"rentacar/storage"
)

type testNode struct {
	server *httptest.Server
	client *Client
	store  *eventlog.Store
	admin  *crypto.PrivateKey
	owner  *crypto.PrivateKey
	renter *crypto.PrivateKey
	asset  [20]byte
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func newTestNode(t *testing.T, cfg Config) *testNode {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)

	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))), &gorm.Config{})
	require.NoError(t, err)
	store, err := eventlog.New(gdb, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exec := core.NewExecutor(db, core.WithSink(events.Multi{store}))
	node := &testNode{
		store:  store,
		admin:  mustKey(t),
		owner:  mustKey(t),
		renter: mustKey(t),
	}
	copy(node.asset[:], crypto.Digest([]byte("test-asset"))[12:])
	_, err = exec.Bootstrap(context.Background(), core.Genesis{
		Admin:        node.admin.PubKey().Address().Raw(),
		PaymentAsset: node.asset,
		Allocations: []core.Allocation{
			{Address: node.renter.PubKey().Address().Raw(), Amount: big.NewInt(2_000_000_000)},
		},
	})
	require.NoError(t, err)

	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 60_000
		cfg.Burst = 1_000
	}
	node.server = httptest.NewServer(NewServer(exec, store, cfg).Handler())
	t.Cleanup(node.server.Close)
	node.client = NewClient(node.server.URL)
	return node
}

func (n *testNode) addCar(t *testing.T) {
	t.Helper()
	_, err := n.client.Call(context.Background(), "add_car", AddCarParams{
		Owner:            n.owner.PubKey().Address().String(),
		PricePerDay:      "1500",
		CommissionAmount: "1000000000",
	}, n.admin)
	require.NoError(t, err)
}

func requireAPIError(t *testing.T, err error, status int, code uint32) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, status, apiErr.Status, apiErr.Error())
	require.Equal(t, code, apiErr.Code, apiErr.Error())
}

func TestRentalLifecycleOverHTTP(t *testing.T) {
	node := newTestNode(t, Config{})
	ctx := context.Background()
	owner := node.owner.PubKey().Address().String()
	renter := node.renter.PubKey().Address().String()
	node.addCar(t)

	resp, err := node.client.Call(ctx, "rental", RentalParams{Renter: renter, Owner: owner, TotalDaysToRent: 3, Amount: "4500"}, node.renter)
	require.NoError(t, err)
	require.Equal(t, "committed", resp.Status)
	require.Equal(t, []string{renter}, resp.Signers)

	var status CarStatusResponse
	require.NoError(t, node.client.Get(ctx, "/v1/cars/"+owner+"/status", &status))
	require.Equal(t, "rented", status.Status)

	var balances BalancesResponse
	require.NoError(t, node.client.Get(ctx, "/v1/admin/fees-balance", &balances))
	require.Equal(t, "1000004500", balances.ContractBalance)
	require.Equal(t, "1000000000", balances.AdminFeesBalance)

	var rental RentalResponse
	require.NoError(t, node.client.Get(ctx, "/v1/rentals/"+renter+"/"+owner, &rental))
	require.Equal(t, uint32(3), rental.TotalDaysToRent)
	require.Equal(t, "4500", rental.Amount)

	_, err = node.client.Call(ctx, "payout_owner", PayoutOwnerParams{Owner: owner, Amount: "4500"}, node.owner)
	requireAPIError(t, err, http.StatusConflict, 13)

	_, err = node.client.Call(ctx, "return_car", ReturnCarParams{Renter: renter, Owner: owner}, node.renter)
	require.NoError(t, err)
	_, err = node.client.Call(ctx, "payout_owner", PayoutOwnerParams{Owner: owner, Amount: "4500"}, node.owner)
	require.NoError(t, err)

	var info CarInfoResponse
	require.NoError(t, node.client.Get(ctx, "/v1/cars/"+owner, &info))
	require.Equal(t, "1500", info.PricePerDay)
	require.Equal(t, "0", info.AvailableToWithdraw)

	var funds AccountBalanceResponse
	require.NoError(t, node.client.Get(ctx, "/v1/balance?address="+owner, &funds))
	require.Equal(t, "4500", funds.Balance)

	_, err = node.client.Call(ctx, "withdraw_admin_fees", WithdrawAdminFeesParams{Amount: "1000000001"}, node.admin)
	requireAPIError(t, err, http.StatusConflict, 8)

	var audit AuditResponse
	require.NoError(t, node.client.Get(ctx, "/v1/audit", &audit))
	require.True(t, audit.Balanced)
	require.True(t, audit.Funded)
	require.Equal(t, "1000000000", audit.ContractBalance)

	var records []eventlog.Record
	require.NoError(t, node.client.Get(ctx, "/v1/events?type="+rentacar.EventTypeRented, &records))
	require.Len(t, records, 1)
	require.Equal(t, "3", records[0].Attributes["totalDaysToRent"])
}

func TestAdminViews(t *testing.T) {
	node := newTestNode(t, Config{})
	ctx := context.Background()

	var admin AdminResponse
	require.NoError(t, node.client.Get(ctx, "/v1/admin", &admin))
	require.Equal(t, node.admin.PubKey().Address().String(), admin.Admin)
	require.Equal(t, crypto.FormatAsset(node.asset), admin.PaymentAsset)

	_, err := node.client.Call(ctx, "set_admin_fee", SetAdminFeeParams{AdminFee: "25"}, node.admin)
	require.NoError(t, err)
	var fee AdminFeeResponse
	require.NoError(t, node.client.Get(ctx, "/v1/admin/fee", &fee))
	require.Equal(t, "25", fee.AdminFee)

	_, err = node.client.Call(ctx, "set_admin_fee", SetAdminFeeParams{AdminFee: "30"}, node.owner)
	requireAPIError(t, err, http.StatusUnauthorized, 19)

	_, err = node.client.Call(ctx, "initialize", InitializeParams{
		Admin:        node.owner.PubKey().Address().String(),
		PaymentAsset: crypto.FormatAsset(node.asset),
	}, node.owner)
	requireAPIError(t, err, http.StatusConflict, 1)
}

func TestCallRejectsTamperedEnvelope(t *testing.T) {
	node := newTestNode(t, Config{})
	owner := node.owner.PubKey().Address().String()
	params, err := json.Marshal(AddCarParams{Owner: owner, PricePerDay: "1500", CommissionAmount: "10"})
	require.NoError(t, err)
	env := Envelope{Method: "add_car", Params: params, Nonce: 1}
	require.NoError(t, env.Sign(node.admin))
	env.Params = json.RawMessage(strings.Replace(string(params), "1500", "1", 1))

	status, body := postEnvelope(t, node.server.URL, env)
	require.Equal(t, http.StatusUnauthorized, status, body)

	var missing CarStatusResponse
	err = node.client.Get(context.Background(), "/v1/cars/"+owner+"/status", &missing)
	requireAPIError(t, err, http.StatusNotFound, 2)
}

func TestCallRejectsReplayedNonce(t *testing.T) {
	node := newTestNode(t, Config{})
	params, err := json.Marshal(SetAdminFeeParams{AdminFee: "1"})
	require.NoError(t, err)
	env := Envelope{Method: "set_admin_fee", Params: params, Nonce: 7}
	require.NoError(t, env.Sign(node.admin))

	status, body := postEnvelope(t, node.server.URL, env)
	require.Equal(t, http.StatusOK, status, body)
	status, body = postEnvelope(t, node.server.URL, env)
	require.Equal(t, http.StatusUnauthorized, status, body)

	var nonce NonceResponse
	require.NoError(t, node.client.Get(context.Background(), "/v1/nonces/"+node.admin.PubKey().Address().String(), &nonce))
	require.Equal(t, uint64(7), nonce.Nonce)
}

func TestInitializeNeedsSignedEnvelope(t *testing.T) {
	node := newTestNode(t, Config{})
	stranger := mustKey(t)
	params, err := json.Marshal(InitializeParams{
		Admin:        stranger.PubKey().Address().String(),
		PaymentAsset: crypto.FormatAsset(node.asset),
	})
	require.NoError(t, err)

	unsigned := Envelope{Method: "initialize", Params: params, Nonce: 1}
	status, body := postEnvelope(t, node.server.URL, unsigned)
	require.Equal(t, http.StatusUnauthorized, status, body)

	signed := unsigned
	require.NoError(t, signed.Sign(stranger))
	status, body = postEnvelope(t, node.server.URL, signed)
	require.Equal(t, http.StatusConflict, status, body)

	var admin AdminResponse
	require.NoError(t, node.client.Get(context.Background(), "/v1/admin", &admin))
	require.Equal(t, node.admin.PubKey().Address().String(), admin.Admin)
}

func TestCallValidation(t *testing.T) {
	node := newTestNode(t, Config{})
	ctx := context.Background()
	node.addCar(t)
	owner := node.owner.PubKey().Address().String()
	renter := node.renter.PubKey().Address().String()

	_, err := node.client.Call(ctx, "steal_funds", map[string]string{}, node.renter)
	requireAPIError(t, err, http.StatusBadRequest, 0)

	_, err = node.client.Call(ctx, "rental", RentalParams{Renter: renter, Owner: owner, TotalDaysToRent: 3, Amount: rentacar.MaxAmount().String()}, node.renter)
	requireAPIError(t, err, http.StatusBadRequest, 9)

	_, err = node.client.Call(ctx, "rental", RentalParams{Renter: renter, Owner: owner, TotalDaysToRent: 0, Amount: "10"}, node.renter)
	requireAPIError(t, err, http.StatusBadRequest, 6)

	_, err = node.client.Call(ctx, "rental", RentalParams{Renter: renter, Owner: "garbage", TotalDaysToRent: 1, Amount: "10"}, node.renter)
	requireAPIError(t, err, http.StatusBadRequest, 20)

	_, err = node.client.Call(ctx, "remove_car", OwnerParams{Owner: renter}, node.admin)
	requireAPIError(t, err, http.StatusNotFound, 2)

	var status CarStatusResponse
	require.NoError(t, node.client.Get(ctx, "/v1/cars/"+owner+"/status", &status))
	require.Equal(t, "available", status.Status)
}

func TestEventStream(t *testing.T) {
	node := newTestNode(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(node.server.URL, "http") + "/v1/events/stream?type=" + rentacar.EventTypeCarAdded
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return node.store.Hub().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	node.addCar(t)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var rec eventlog.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, rentacar.EventTypeCarAdded, rec.Type)
	require.Equal(t, node.owner.PubKey().Address().String(), rec.Attributes["owner"])
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	node := newTestNode(t, Config{RequestsPerMinute: 1, Burst: 2})
	for i := 0; i < 2; i++ {
		resp, err := http.Get(node.server.URL + "/v1/admin/fee")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := http.Get(node.server.URL + "/v1/admin/fee")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	health, err := http.Get(node.server.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	require.Equal(t, http.StatusOK, health.StatusCode)
}

func postEnvelope(t *testing.T, baseURL string, env Envelope) (int, string) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/v1/call", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.String()
}
