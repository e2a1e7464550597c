package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/hryang/cachegate/pkg/gateway"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	Gateway *gateway.Gateway // the bounded cache in front of the datastore
	Echo    *echo.Echo       // the echo server serving the cache api
	Logger  *zap.Logger
}

// putRequest uses pointers so that a missing field can be told apart from an
// empty one.
type putRequest struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
}

func NewServer(gw *gateway.Gateway, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Gateway: gw,
		Echo:    echo.New(),
		Logger:  logger,
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = s.errorHandler

	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Echo.Use(s.requestLogger())
	s.Echo.Use(middleware.Recover())

	s.Echo.GET("/", s.livenessHandler)
	s.Echo.GET("/stats", s.statsHandler)
	s.Echo.POST("/cache", s.putHandler)
	s.Echo.GET("/cache/:key", s.getHandler)
	s.Echo.DELETE("/cache/:key", s.deleteHandler)

	s.Logger.Info("create the cache gateway", zap.Int("capacity", gw.Capacity()))

	return s
}

func (s *Server) Start(address string) error {
	s.Logger.Info("server is running", zap.String("address", address))
	return s.Echo.Start(address)
}

// Shutdown stops accepting requests and waits for the in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) livenessHandler(c echo.Context) error {
	return c.String(http.StatusOK, "Server is running 🔥")
}

func (s *Server) statsHandler(c echo.Context) error {
	stats, err := s.Gateway.Stats(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) putHandler(c echo.Context) error {
	// The body is decoded as JSON whatever the Content-Type says.
	var req putRequest
	if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body. Expected {\"key\": string, \"value\": string}.")
	}
	if req.Key == nil || *req.Key == "" || req.Value == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Both key and value are required.")
	}

	entry, err := s.Gateway.Put(c.Request().Context(), *req.Key, *req.Value)
	if err != nil {
		return s.httpError(err)
	}
	return c.String(http.StatusOK, fmt.Sprintf("Stored {%s : %s} successfully.", entry.Key, entry.Value))
}

// keyParam returns the decoded :key path parameter. echo routes on the raw
// path when the request carries escapes such as %2F, and the parameter then
// comes back still escaped.
func keyParam(c echo.Context) (string, error) {
	key := c.Param("key")
	if c.Request().URL.RawPath == "" {
		return key, nil
	}
	unescaped, err := url.PathUnescape(key)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid key encoding.").SetInternal(err)
	}
	return unescaped, nil
}

func (s *Server) getHandler(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return err
	}
	value, err := s.Gateway.Get(c.Request().Context(), key)
	if err != nil {
		return s.httpError(err)
	}
	return c.String(http.StatusOK, "Value: "+value)
}

func (s *Server) deleteHandler(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return err
	}
	key, err = s.Gateway.Delete(c.Request().Context(), key)
	if err != nil {
		return s.httpError(err)
	}
	return c.String(http.StatusOK, "Deleted key: "+key)
}

// httpError maps the gateway errors to the status codes of the cache api.
func (s *Server) httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, gateway.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, "Both key and value are required.")
	case errors.Is(err, gateway.ErrCapacityExceeded):
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Cache limit reached. Cannot store more than %d keys.", s.Gateway.Capacity()))
	case errors.Is(err, gateway.ErrDuplicateKey):
		return echo.NewHTTPError(http.StatusBadRequest, "Key already exists.")
	case errors.Is(err, gateway.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Key not found.")
	case errors.Is(err, gateway.ErrBackendUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Cache backend unavailable.").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error.").SetInternal(err)
	}
}

// errorHandler writes errors as plain text, the same as successful responses.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = s.httpError(err)
	}
	msg, ok := he.Message.(string)
	if !ok {
		msg = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.String(he.Code, msg)
	}
	if err != nil {
		s.Logger.Error("write error response", zap.Error(err))
	}
}

// requestLogger logs every request through zap.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRequestID: true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.Logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.Logger.Info("request", fields...)
			return nil
		},
	})
}
