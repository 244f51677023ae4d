// bed-monitor - record motion and bed occupancy from a live camera
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Boundary        = "frame"
	shutdownTimeout = 5 * time.Second
)

const indexPage = `<html>
<head><title>bed-monitor</title></head>
<body>
<h1>bed-monitor</h1>
<img src="/video_feed">
</body>
</html>
`

type ServerConfig struct {
	IP           string        `yaml:"ip"`
	Port         int           `yaml:"port"`
	PollInterval time.Duration `yaml:"poll-interval"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		IP:           "0.0.0.0",
		Port:         8000,
		PollInterval: 20 * time.Millisecond,
	}
}

func (conf *ServerConfig) Validate() error {
	if net.ParseIP(conf.IP) == nil {
		return fmt.Errorf("invalid ip %q", conf.IP)
	}
	if conf.Port < 1 || conf.Port > 65535 {
		return errors.New("port should be in range 1 - 65535")
	}
	if conf.PollInterval <= 0 {
		return errors.New("poll-interval should be positive")
	}
	return nil
}

func (conf *ServerConfig) Address() string {
	return net.JoinHostPort(conf.IP, strconv.Itoa(conf.Port))
}

// Server streams frames from a Sink to HTTP clients.
type Server struct {
	echo     *echo.Echo
	sink     *Sink
	addr     string
	interval time.Duration
	viewers  prometheus.Gauge
	closing  chan struct{}
	stopOnce sync.Once
}

func NewServer(conf *ServerConfig, sink *Sink, reg *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		sink:     sink,
		addr:     conf.Address(),
		interval: conf.PollInterval,
		closing:  make(chan struct{}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bed_monitor",
			Name:      "stream_viewers",
			Help:      "Number of clients watching the live feed.",
		}),
	}

	e.GET("/", s.index)
	e.GET("/video_feed", s.videoFeed)
	e.GET("/snapshot.jpg", s.snapshot)
	if reg != nil {
		reg.MustRegister(s.viewers)
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the HTTP handler serving the feed.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled. Open feeds are ended before the
// server shuts down.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("serving live feed on http://%s/", s.addr)
		errc <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.stopFeeds()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) stopFeeds() {
	s.stopOnce.Do(func() { close(s.closing) })
}

func (s *Server) index(c echo.Context) error {
	return c.HTML(http.StatusOK, indexPage)
}

func (s *Server) snapshot(c echo.Context) error {
	data, _, ok := s.sink.Current()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no frames yet")
	}
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

func (s *Server) videoFeed(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary="+Boundary)
	res.Header().Set("Cache-Control", "no-cache")
	res.WriteHeader(http.StatusOK)

	s.viewers.Inc()
	defer s.viewers.Dec()

	ctx := c.Request().Context()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if data, seq, ok := s.sink.Current(); ok && seq != last {
			if err := writePart(res, data); err != nil {
				return nil
			}
			res.Flush()
			last = seq
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.closing:
			return nil
		case <-ticker.C:
		}
	}
}

func writePart(w io.Writer, data []byte) error {
	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(data))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
