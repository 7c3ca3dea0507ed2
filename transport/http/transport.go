package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/prompt"
)

// Role required to change recorded executions.
const TraderRole = "trader"

func AddRoutes(r gin.IRouter, endpoints trading.EndpointSet) {
	auth := Authorizator(TraderRole)

	// GET /prices
	r.GET("/prices", PricesHandler(endpoints.Prices))

	// GET /indicators
	r.GET("/indicators", IndicatorsHandler(endpoints.Indicators))

	// GET /snapshot
	r.GET("/snapshot", SnapshotHandler(endpoints.Snapshot))

	// POST /reviews
	r.POST("/reviews", ReviewHandler(endpoints.Review))

	// GET /executions
	r.GET("/executions", ExecutionsHandler(endpoints.Executions))

	// GET /executions/:id
	r.GET("/executions/:id", ExecutionHandler(endpoints.Execution))

	// POST /executions
	r.POST("/executions", auth, RecordExecutionHandler(endpoints.RecordExecution))

	// DELETE /executions/:id
	r.DELETE("/executions/:id", auth, DeleteExecutionHandler(endpoints.DeleteExecution))
}

func fail(c *gin.Context, code int, err error) {
	c.Abort()
	c.Error(err)
	c.String(code, err.Error())
}

func bindContext(c *gin.Context) (price.ProviderContext, bool) {
	var q trading.PriceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, err)
		return price.ProviderContext{}, false
	}

	pctx, err := q.Context()
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return price.ProviderContext{}, false
	}

	return pctx, true
}

func PricesHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		pctx, ok := bindContext(c)
		if !ok {
			return
		}

		resp, err := endpoint(c, pctx)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

type IndicatorsQuery struct {
	EMAFast    int `form:"ema_fast"`
	EMASlow    int `form:"ema_slow"`
	RSI        int `form:"rsi"`
	ATR        int `form:"atr"`
	MACDFast   int `form:"macd_fast"`
	MACDSlow   int `form:"macd_slow"`
	MACDSignal int `form:"macd_signal"`
}

func IndicatorsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		pctx, ok := bindContext(c)
		if !ok {
			return
		}

		var q IndicatorsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		req := trading.IndicatorsRequest{
			Context:    pctx,
			EMAFast:    q.EMAFast,
			EMASlow:    q.EMASlow,
			RSI:        q.RSI,
			ATR:        q.ATR,
			MACDFast:   q.MACDFast,
			MACDSlow:   q.MACDSlow,
			MACDSignal: q.MACDSignal,
		}

		resp, err := endpoint(c, req)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

// SnapshotHandler answers with JSON, or with the rendered table when the
// lang query parameter is set.
func SnapshotHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		pctx, ok := bindContext(c)
		if !ok {
			return
		}

		var q struct {
			WindowSize int    `form:"window"`
			Lang       string `form:"lang"`
		}
		if err := c.ShouldBindQuery(&q); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		req := trading.SnapshotRequest{
			Context:    pctx,
			WindowSize: q.WindowSize,
		}

		resp, err := endpoint(c, req)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		if q.Lang == "" {
			c.JSON(http.StatusOK, &resp)
			return
		}

		lang, err := prompt.ParseLanguage(q.Lang)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		snapshot, ok := resp.(*prompt.PriceIndicatorSnapshot)
		if !ok {
			fail(c, http.StatusExpectationFailed, errors.New("invalid snapshot response"))
			return
		}

		text, err := snapshot.Consumable()
		if err != nil {
			fail(c, http.StatusExpectationFailed, err)
			return
		}

		c.String(http.StatusOK, text.Get(lang))
	}
}

func ReviewHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q trading.ReviewQuery
		if err := c.ShouldBindJSON(&q); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		req, err := q.Request()
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		resp, err := endpoint(c, req)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		lang := c.Query("lang")
		if lang == "" {
			c.JSON(http.StatusOK, &resp)
			return
		}

		language, err := prompt.ParseLanguage(lang)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		review, ok := resp.(prompt.LocalizableString)
		if !ok {
			fail(c, http.StatusExpectationFailed, errors.New("invalid review response"))
			return
		}

		c.String(http.StatusOK, review.Get(language))
	}
}

func ExecutionsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var symbol price.Instrument
		if s := c.Query("symbol"); s != "" {
			instrument, err := price.ParseInstrument(s)
			if err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}

			symbol = instrument
		}

		resp, err := endpoint(c, symbol)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func executionID(c *gin.Context) (execution.ID, bool) {
	id, err := execution.ParseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return execution.ID{}, false
	}

	return id, true
}

func ExecutionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := executionID(c)
		if !ok {
			return
		}

		resp, err := endpoint(c, id)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func RecordExecutionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trading.RecordExecutionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		resp, err := endpoint(c, req)
		if err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusCreated, &resp)
	}
}

func DeleteExecutionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := executionID(c)
		if !ok {
			return
		}

		if _, err := endpoint(c, id); err != nil {
			fail(c, trading.StatusCode(err), err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
