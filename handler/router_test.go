//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesrecord/salesapi/biz/sale/application/query"
	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/po"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/ddd/executor/gormexec"
	"github.com/salesrecord/salesapi/metrics"
	"github.com/salesrecord/salesapi/testsuit"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T) http.Handler {
	gin.SetMode(gin.TestMode)
	db := testsuit.InitSQLite(t.Name())
	require.NoError(t, db.AutoMigrate(&po.SalePO{}, &po.SaleItemPO{}))
	infrastructure.Init()
	query.Init(db)

	engine := ddd.NewEngine(testsuit.NewMemLock(), gormexec.NewExecutor(db),
		ddd.WithIDGenerator(infrastructure.UUIDGenerator{}))
	m := metrics.New()
	return NewRouter(NewSaleService(engine, m), m)
}

func do(t *testing.T, srv http.Handler, method, path string, body interface{}) (int, *envelope) {
	var reader io.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewBufferString(s)
	} else if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	env := &envelope{}
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), env))
	}
	return rec.Code, env
}

func createBody() map[string]interface{} {
	return map[string]interface{}{
		"saleNumber": 1001,
		"saleDate":   "2024-03-01T10:00:00Z",
		"customer":   "ACME",
		"branch":     "Downtown",
		"items": []map[string]interface{}{
			{"productId": "p1", "productName": "Widget", "quantity": 5, "unitPrice": 10},
			{"productId": "p2", "productName": "Gadget", "quantity": 2, "unitPrice": "3.00"},
		},
	}
}

func create(t *testing.T, srv http.Handler) string {
	code, env := do(t, srv, http.MethodPost, "/api/sales", createBody())
	require.Equal(t, http.StatusCreated, code, env.Message)
	resp := &CreateSaleResponse{}
	require.NoError(t, json.Unmarshal(env.Data, resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func decodeSale(t *testing.T, env *envelope) *sale.Sale {
	s := &sale.Sale{}
	require.NoError(t, json.Unmarshal(env.Data, s))
	return s
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAndGet(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	code, env := do(t, srv, http.MethodGet, "/api/sales/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	s := decodeSale(t, env)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "ACME", s.Customer)
	assert.True(t, s.TotalAmount.Equal(decimal.NewFromInt(51)), s.TotalAmount.String())
	assert.Len(t, s.Items, 2)
}

func TestCreateValidation(t *testing.T) {
	srv := newServer(t)

	tooMany := createBody()
	tooMany["items"] = []map[string]interface{}{
		{"productName": "Widget", "quantity": 21, "unitPrice": 10},
	}
	noCustomer := createBody()
	delete(noCustomer, "customer")
	noItems := createBody()
	noItems["items"] = []map[string]interface{}{}
	freeItem := createBody()
	freeItem["items"] = []map[string]interface{}{
		{"productName": "Widget", "quantity": 1, "unitPrice": 0},
	}
	badNumber := createBody()
	badNumber["saleNumber"] = 0

	for name, body := range map[string]interface{}{
		"quantity above 20": tooMany,
		"missing customer":  noCustomer,
		"no items":          noItems,
		"zero unit price":   freeItem,
		"zero sale number":  badNumber,
		"malformed json":    "{",
	} {
		code, env := do(t, srv, http.MethodPost, "/api/sales", body)
		assert.Equal(t, http.StatusBadRequest, code, name)
		assert.False(t, env.Success, name)
		assert.NotEmpty(t, env.Message, name)
	}

	_, env := do(t, srv, http.MethodPost, "/api/sales", tooMany)
	assert.Equal(t, domain.ErrInvalidQuantity.Error(), env.Message)
}

func TestGetNotFound(t *testing.T) {
	srv := newServer(t)
	code, env := do(t, srv, http.MethodGet, "/api/sales/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestUpdate(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)
	_, env := do(t, srv, http.MethodGet, "/api/sales/"+id, nil)
	created := decodeSale(t, env)

	var keep string
	for _, item := range created.Items {
		if item.ProductID == "p1" {
			keep = item.ID
		}
	}
	body := createBody()
	body["customer"] = "ACME Corp"
	body["items"] = []map[string]interface{}{
		{"id": keep, "productId": "p1", "productName": "Widget", "quantity": 10, "unitPrice": 10},
	}
	code, env := do(t, srv, http.MethodPut, "/api/sales/"+id, body)
	require.Equal(t, http.StatusOK, code, env.Message)
	s := decodeSale(t, env)
	assert.Equal(t, "ACME Corp", s.Customer)
	require.Len(t, s.Items, 1)
	assert.Equal(t, keep, s.Items[0].ID)
	assert.True(t, s.TotalAmount.Equal(decimal.NewFromInt(80)), s.TotalAmount.String())

	code, _ = do(t, srv, http.MethodPut, "/api/sales/missing", body)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCancel(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	code, env := do(t, srv, http.MethodPost, "/api/sales/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	s := decodeSale(t, env)
	assert.True(t, s.IsCancelled)
	assert.True(t, s.TotalAmount.IsZero())
	for _, item := range s.Items {
		assert.True(t, item.IsCancelled)
	}

	code, _ = do(t, srv, http.MethodPost, "/api/sales/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDelete(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	code, env := do(t, srv, http.MethodDelete, "/api/sales/"+id, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, env.Success)

	code, _ = do(t, srv, http.MethodGet, "/api/sales/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, srv, http.MethodDelete, "/api/sales/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestList(t *testing.T) {
	srv := newServer(t)
	create(t, srv)
	other := createBody()
	other["customer"] = "Globex"
	code, _ := do(t, srv, http.MethodPost, "/api/sales", other)
	require.Equal(t, http.StatusCreated, code)

	code, env := do(t, srv, http.MethodGet, "/api/sales?customer=Globex", nil)
	require.Equal(t, http.StatusOK, code)
	resp := &ListSalesResponse{}
	require.NoError(t, json.Unmarshal(env.Data, resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Globex", resp.Items[0].Customer)

	code, env = do(t, srv, http.MethodGet, "/api/sales?limit=1", nil)
	require.Equal(t, http.StatusOK, code)
	resp = &ListSalesResponse{}
	require.NoError(t, json.Unmarshal(env.Data, resp))
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Items, 1)

	code, _ = do(t, srv, http.MethodGet, "/api/sales?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t)
	do(t, srv, http.MethodGet, "/api/sales/missing", nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `salesapi_http_requests_total{method="GET",path="/api/sales/:id",status="404"} 1`)
}
