package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.fiblab.net/sim/patrol/planner"
	"git.fiblab.net/sim/patrol/planner/algo"
	"git.fiblab.net/sim/patrol/source"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var (
	// service
	listenAddr     = flag.String("listen", "localhost:52101", "HTTP listening address")
	logLevel       = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	requestTimeout = flag.Duration("request-timeout", 2*time.Minute, "budget of one route request, 0 means unbounded")
	catalogPath    = flag.String("neighborhoods", "", "city -> neighborhoods yaml, empty uses the built-in catalog")

	// road graph source
	nominatimURL    = flag.String("nominatim", source.DefaultNominatimURL, "nominatim base url")
	overpassURL     = flag.String("overpass", source.DefaultOverpassURL, "overpass interpreter url")
	userAgent       = flag.String("user-agent", source.DefaultUserAgent, "user agent sent to the OSM services")
	upstreamTimeout = flag.Duration("upstream-timeout", 3*time.Minute, "timeout of one OSM request")
	retryBackoff    = flag.Duration("retry-backoff", 2*time.Second, "wait before retrying an unavailable OSM service")
	fetchTimeout    = flag.Duration("fetch-timeout", 10*time.Minute, "bound of one road graph download shared by concurrent requests, 0 means unbounded")
	mongoURI        = flag.String("mongo_uri", "", "mongo db uri")
	cachePathStr    = flag.String("cache", "", "road graph cache, empty disables it [format: {dir} or {db}.{col}]")
	cacheTTL        = flag.Duration("cache-ttl", 24*time.Hour, "road graph cache lifetime, 0 keeps graphs forever")

	// planner
	scanAxis      = flag.String("axis", "lat", "simplifier scan axis [lat, lon]")
	tourTimeLimit = flag.Duration("tour-time-limit", algo.DEFAULT_TIME_LIMIT, "2-opt time budget, negative means unlimited")
	twoOptPasses  = flag.Int("two-opt-passes", 0, "maximum accepted 2-opt moves, 0 means until local optimum")
	noRefine      = flag.Bool("no-refine", false, "skip 2-opt")
	maxNodes      = flag.Int("max-nodes", algo.DEFAULT_MAX_NODES, "largest road graph a tour is built for, negative means unlimited")

	// benchmark
	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "", "pprof listening address, empty disables it")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	loadDotEnv(".")
	flag.Parse()
	if err := applyEnv(flag.CommandLine); err != nil {
		logrus.Fatalf("invalid environment: %v", err)
	}
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	axis, err := algo.ParseAxis(*scanAxis)
	if err != nil {
		log.Fatalf("invalid axis: %v", err)
	}
	p := planner.New(planner.Config{
		Axis: axis,
		Tour: algo.TourOptions{
			TimeLimit:         *tourTimeLimit,
			MaxPasses:         *twoOptPasses,
			DisableRefinement: *noRefine,
			MaxNodes:          *maxNodes,
		},
	})
	catalog, err := LoadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("invalid neighborhood catalog: %v", err)
	}

	if *pprofAddr != "" {
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		runBenchmark(p, catalog)
		return
	}

	cachePath, err := NewPath(*cachePathStr)
	if err != nil {
		log.Fatalf("invalid cache path: %s", err)
	}
	store, client, err := cachePath.OpenStore(*mongoURI)
	if err != nil {
		log.Fatalf("failed to open graph cache %v: %v", cachePath, err)
	}
	var src source.GraphSource = &source.Retry{
		Source:  source.NewOSMSource(*nominatimURL, *overpassURL, *userAgent, *upstreamTimeout),
		Backoff: *retryBackoff,
	}
	cached := source.NewCached(src, store, *cacheTTL)
	cached.Timeout = *fetchTimeout
	src = cached

	server := NewPatrolServer(src, p, catalog, *requestTimeout)
	// HTTP/2 w.o. TLS
	s := &http.Server{
		Addr:    *listenAddr,
		Handler: h2c.NewHandler(server.Handler(), &http2.Server{}),
	}

	// SIGUSR1 holds route requests, SIGUSR2 lets them through again
	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range pauseCh {
			if sig == syscall.SIGUSR1 {
				log.Info("suspending route requests")
				server.Suspend()
			} else {
				log.Info("resuming route requests")
				server.Resume()
			}
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1) // second signal forces exit
		}()
		server.Resume()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
		if client != nil {
			client.Disconnect(ctx)
		}
	}()

	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to serve: %v", err)
	}
	time.Sleep(1 * time.Second) // let the shutdown goroutine finish
	log.Info("patrol closes")
}
