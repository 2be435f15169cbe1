package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/comanda/internal/authorization"
	"github.com/smallbiznis/comanda/internal/kitchen"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"go.uber.org/zap"
)

const (
	streamHeartbeat = 15 * time.Second
	// kitchenStreamRoute is left out of request tracing.
	kitchenStreamRoute = "/api/kitchen/stream"
)

// streamMessage is one server-sent event. Orders is set on zone displays,
// Board on the cashier monitor.
type streamMessage struct {
	Event  *orderdomain.Event       `json:"event,omitempty"`
	Alert  kitchen.Alert            `json:"alert,omitempty"`
	Orders []orderdomain.Response   `json:"orders,omitempty"`
	Board  []orderdomain.BoardEntry `json:"board,omitempty"`
}

func (s *Server) ListKitchenOrders(c *gin.Context) {
	resp, err := s.orderSvc.ListForDisplay(c.Request.Context(), strings.TrimSpace(c.Query("zone")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StartCooking(c *gin.Context) {
	resp, err := s.orderSvc.StartCooking(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkReady(c *gin.Context) {
	resp, err := s.orderSvc.MarkReady(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevertToKitchen(c *gin.Context) {
	resp, err := s.orderSvc.RevertToKitchen(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CashierBoard(c *gin.Context) {
	resp, err := s.orderSvc.CashierBoard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// StreamKitchen pushes a fresh snapshot of a display every time the feed
// reports a change in its zone. zone=* streams the cashier board instead.
func (s *Server) StreamKitchen(c *gin.Context) {
	if s.feed == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	ref := strings.TrimSpace(c.Query("zone"))
	cashier := ref == kitchen.AllZones

	key := kitchen.AllZones
	if cashier {
		principal, ok := principalFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(ctx, string(principal.Role), authorization.ObjectCashier, authorization.ActionView); err != nil {
			AbortWithError(c, err)
			return
		}
	} else {
		zoneID, err := s.zoneSvc.Resolve(ctx, ref)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		key = orderdomain.ZoneKey(zoneID)
	}

	subscription, err := s.feed.Subscribe(key)
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	done := s.telemetry.StreamOpened(key)
	defer done()

	detector := kitchen.NewDetector()
	snapshot := func(ev *orderdomain.Event) (streamMessage, error) {
		msg := streamMessage{Event: ev}
		if cashier {
			board, err := s.orderSvc.CashierBoard(ctx)
			msg.Board = board
			return msg, err
		}
		orders, err := s.orderSvc.ListForDisplay(ctx, ref)
		if err != nil {
			return msg, err
		}
		msg.Orders = orders
		msg.Alert = detector.Observe(orders)
		return msg, nil
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	initial, err := snapshot(nil)
	if err != nil {
		s.log.Warn("kitchen stream snapshot failed", zap.String("zone", key), zap.Error(err))
		return
	}
	if err := writeStreamMessage(writer, "snapshot", initial); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-subscription.Events():
			if !ok {
				return
			}
			s.telemetry.ObserveStreamEvent(string(ev.Type))
			msg, err := snapshot(&ev)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// the display keeps its last snapshot until the next change
				continue
			}
			if err := writeStreamMessage(writer, "update", msg); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStreamMessage(w io.Writer, name string, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
