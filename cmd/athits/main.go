// athits inspects and flushes the offline hit queue kept by a tracker.
//
// Usage:
//
//	athits [flags] count
//	athits [flags] list [--json]
//	athits [flags] purge [--days N]
//	athits [flags] flush [--config FILE] [--site ID --log LOG --domain DOMAIN]
//
// --dir selects the storage directory (the tracker's default location when empty) and --key
// gives the age secret key needed to read hits stored with encryption.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/spf13/pflag"

	attracker "github.com/atinternet/go-tracker"
	"github.com/atinternet/go-tracker/atcomponents"
	"github.com/atinternet/go-tracker/atconfig"
	"github.com/atinternet/go-tracker/atcrypto"
	"github.com/atinternet/go-tracker/internal/storage"
	"github.com/atinternet/go-tracker/subsystems"
)

type options struct {
	dir     string
	key     string
	verbose bool

	asJSON bool
	days   int

	configFile string
	site       string
	log        string
	domain     string
	timeout    time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("athits", pflag.ContinueOnError)
	flagSet.StringVar(&opts.dir, "dir", "", "offline storage directory (default: the tracker's default location)")
	flagSet.StringVar(&opts.key, "key", "", "age secret key used to encrypt stored hits")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")
	flagSet.BoolVar(&opts.asJSON, "json", false, "list: print one JSON object per hit")
	flagSet.IntVar(&opts.days, "days", 0, "purge: delete hits older than this many days (0 deletes every hit)")
	flagSet.StringVar(&opts.configFile, "config", "", "flush: tracker configuration file (JSON, JSONC or YAML)")
	flagSet.StringVar(&opts.site, "site", "", "flush: site id")
	flagSet.StringVar(&opts.log, "log", "", "flush: collector log subdomain")
	flagSet.StringVar(&opts.domain, "domain", "", "flush: collector domain")
	flagSet.DurationVar(&opts.timeout, "timeout", time.Minute, "flush: give up after this long")
	flagSet.SortFlags = false
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: athits [flags] count|list|purge|flush")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return errors.New("expected exactly one command")
	}

	loggers := ldlog.NewDefaultLoggers()
	if opts.verbose {
		loggers.SetMinLevel(ldlog.Debug)
	} else {
		loggers.SetMinLevel(ldlog.Warn)
	}

	switch command := flagSet.Arg(0); command {
	case "count", "list", "purge":
		return inspect(command, opts, loggers, out)
	case "flush":
		return flush(opts, loggers, out)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func encryptor(key string) (subsystems.Encryptor, error) {
	if key == "" {
		return nil, nil
	}
	return atcrypto.NewAgeEncryptor(key)
}

func inspect(command string, opts options, loggers ldlog.Loggers, out io.Writer) error {
	enc, err := encryptor(opts.key)
	if err != nil {
		return err
	}
	location := storage.NewLocation()
	location.SetDirectory(opts.dir, loggers)
	path, err := location.Path()
	if err != nil {
		return err
	}
	db, err := storage.OpenDatabase(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Clean(path), err)
	}
	defer db.Close() //nolint:errcheck
	store := storage.NewHitStore(db, storage.Codec{Encryptor: enc}, loggers)

	switch command {
	case "count":
		_, err = fmt.Fprintln(out, store.Count())
	case "list":
		err = list(store.Get(), opts.asJSON, out)
	case "purge":
		var n int
		if opts.days > 0 {
			n = store.DeleteOlderThanDays(opts.days)
		} else {
			n = store.Delete()
		}
		_, err = fmt.Fprintf(out, "deleted %d hit(s)\n", n)
	}
	return err
}

type listedHit struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Created    time.Time `json:"created"`
	RetryCount int       `json:"retryCount"`
	URL        string    `json:"url"`
}

func list(hits []attracker.Hit, asJSON bool, out io.Writer) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, h := range hits {
			if err := enc.Encode(listedHit{h.ID, h.Type().String(), h.CreationDate, h.RetryCount, h.URL}); err != nil {
				return err
			}
		}
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tCREATED\tRETRIES\tURL")
	for _, h := range hits {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", h.ID, h.Type(), h.CreationDate.Format(time.RFC3339), h.RetryCount, h.URL)
	}
	return w.Flush()
}

func flushConfig(opts options) (atconfig.Map, error) {
	values := atconfig.Map{}
	if opts.configFile != "" {
		data, err := os.ReadFile(opts.configFile)
		if err != nil {
			return nil, err
		}
		if values, err = atconfig.Parse(data, atconfig.FormatForPath(opts.configFile)); err != nil {
			return nil, err
		}
	}
	for key, value := range map[string]string{
		attracker.ConfigSite:   opts.site,
		attracker.ConfigLog:    opts.log,
		attracker.ConfigDomain: opts.domain,
	} {
		if value != "" {
			values[key] = value
		}
	}
	return values, nil
}

func flush(opts options, loggers ldlog.Loggers, out io.Writer) error {
	values, err := flushConfig(opts)
	if err != nil {
		return err
	}
	config := attracker.Config{
		ConfigProvider: values,
		Storage:        atcomponents.OfflineStorage().Directory(opts.dir),
		Logging:        atcomponents.Logging().Loggers(loggers),
	}
	if opts.key != "" {
		config.Encryption = atcrypto.Age(opts.key)
	}
	tracker, err := attracker.New(config)
	if err != nil {
		return err
	}
	defer tracker.Close() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, opts.timeout)
	defer cancelTimeout()

	result := tracker.Offline().DispatchContext(ctx)
	fmt.Fprintf(out, "sent %d, dropped %d, remaining %d\n", result.Sent, result.Dropped, result.Remaining)
	if !result.Completed {
		return errors.New("flush did not complete")
	}
	return nil
}
