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
	"net/http"
	"reflect"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/salesrecord/salesapi/logger/stdr"
	"github.com/salesrecord/salesapi/metrics"
)

var httpLogger = stdr.NewStdr("salesapi")

var registerOnce sync.Once

// registerDecimal lets numeric tags such as gt=0 apply to decimal fields.
func registerDecimal() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
}

// NewRouter serves the sales API under /api/sales, plus /health and, when m
// is not nil, /metrics.
func NewRouter(service *SaleServiceImpl, m *metrics.Metrics) *gin.Engine {
	registerDecimal()

	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(httpLogger))
	if m != nil {
		r.Use(MetricsMiddleware(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &saleHandler{service: service}
	sales := r.Group("/api/sales")
	{
		sales.POST("", h.create)
		sales.GET("", h.list)
		sales.GET("/:id", h.get)
		sales.PUT("/:id", h.update)
		sales.DELETE("/:id", h.delete)
		sales.POST("/:id/cancel", h.cancel)
	}
	return r
}

type saleHandler struct {
	service *SaleServiceImpl
}

func succeed(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		httpLogger.Error(err, "request failed", "method", c.Request.Method, "path", c.Request.URL.Path)
	}
	c.JSON(status, Response{Success: false, Message: messageOf(status, err)})
}

func (h *saleHandler) create(c *gin.Context) {
	req := &CreateSaleRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, &requestError{err: err})
		return
	}
	resp, err := h.service.CreateSale(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, http.StatusCreated, resp)
}

func (h *saleHandler) list(c *gin.Context) {
	req := &ListSalesRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		fail(c, &requestError{err: err})
		return
	}
	resp, err := h.service.ListSales(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, http.StatusOK, resp)
}

func (h *saleHandler) get(c *gin.Context) {
	s, err := h.service.GetSale(c.Request.Context(), &GetSaleRequest{ID: c.Param("id")})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, http.StatusOK, s)
}

func (h *saleHandler) update(c *gin.Context) {
	req := &UpdateSaleRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, &requestError{err: err})
		return
	}
	req.ID = c.Param("id")
	s, err := h.service.UpdateSale(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, http.StatusOK, s)
}

func (h *saleHandler) delete(c *gin.Context) {
	if err := h.service.DeleteSale(c.Request.Context(), &DeleteSaleRequest{ID: c.Param("id")}); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "sale deleted"})
}

func (h *saleHandler) cancel(c *gin.Context) {
	s, err := h.service.CancelSale(c.Request.Context(), &CancelSaleRequest{ID: c.Param("id")})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, http.StatusOK, s)
}
