package atlive

import (
	"net"
	"net/http"
	"time"

	"github.com/atinternet/go-tracker/subsystems"
)

// Builder configures the live tagging server. See Console.
type Builder struct {
	address     string
	historySize int
}

// Console returns a builder for Config.LiveTagging. If Listen is not called, the caller is
// expected to mount the server's Handler on its own HTTP server; use Build's result through
// attracker.Tracker.LiveTagging for that.
//
//	config := attracker.Config{LiveTagging: atlive.Console().Listen("127.0.0.1:8642")}
func Console() *Builder {
	return &Builder{historySize: DefaultHistorySize}
}

// Listen makes the tracker serve the stream itself on address.
func (b *Builder) Listen(address string) *Builder {
	b.address = address
	return b
}

// HistorySize sets how many recent hits are replayed to a console when it connects.
func (b *Builder) HistorySize(n int) *Builder {
	b.historySize = n
	return b
}

// Build is called internally by the tracker.
func (b *Builder) Build(context subsystems.ClientContext) (subsystems.LiveTaggingSink, error) {
	loggers := context.GetLogging().Loggers
	server := NewServer(b.historySize, loggers)
	if b.address == "" {
		return server, nil
	}
	listener, err := net.Listen("tcp", b.address)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			loggers.Errorf("Live tagging server stopped: %s", err)
		}
	}()
	loggers.Infof("Live tagging console available at http://%s", listener.Addr())
	return &listeningServer{Server: server, http: httpServer}, nil
}

type listeningServer struct {
	*Server
	http *http.Server
}

func (l *listeningServer) Close() error {
	_ = l.Server.Close()
	return l.http.Close()
}
