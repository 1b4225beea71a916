package main

import (
	"flag"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/ngaut/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/tinystm/tinystm/bench/intset"
	"github.com/tinystm/tinystm/stm"
	"github.com/tinystm/tinystm/stm/config"
	"github.com/tinystm/tinystm/stm/util/worker"
)

var (
	configPath = flag.String("config", "", "config file path")
	threads    = flag.Int("threads", 4, "number of benchmark threads")
	duration   = flag.Duration("duration", 10*time.Second, "benchmark duration")
	valueRange = flag.Int64("range", 1<<16, "value range of the integer set")
	update     = flag.Int("update", 20, "percentage of updating operations")
)

type benchTask struct {
	seed     int64
	deadline time.Time
}

type benchHandler struct {
	set        *intset.IntSet
	valueRange int64
	update     int

	ops atomic.Int64
}

func (h *benchHandler) Handle(ctx *stm.Context, t worker.Task) {
	task := t.(benchTask)
	rnd := rand.New(rand.NewSource(task.seed))
	var ops int64
	for time.Now().Before(task.deadline) {
		v := rnd.Int63n(h.valueRange)
		var err error
		switch {
		case rnd.Intn(100) < h.update:
			if rnd.Intn(2) == 0 {
				_, err = h.set.Add(ctx, v)
			} else {
				_, err = h.set.Remove(ctx, v)
			}
		default:
			_, err = h.set.Contains(ctx, v)
		}
		if err != nil {
			log.Fatalf("benchmark operation failed: %v", err)
		}
		ops++
	}
	h.ops.Add(ops)
}

func main() {
	flag.Parse()
	conf := loadConfig()
	log.SetLevelByString(conf.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Infof("conf %+v", conf)

	if conf.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Infof("metrics listening on %s", conf.MetricsAddr)
			if err := http.ListenAndServe(conf.MetricsAddr, nil); err != nil {
				log.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	rt, err := stm.NewRuntime(conf)
	if err != nil {
		log.Fatal(err)
	}

	set := intset.New()
	seedSet(rt, set)

	handler := &benchHandler{
		set:        set,
		valueRange: *valueRange,
		update:     *update,
	}
	pool := worker.NewPool("bench", rt, *threads)
	pool.Start(handler)

	log.Infof("running %d threads for %v, range %d, update %d%%",
		*threads, *duration, *valueRange, *update)
	start := time.Now()
	deadline := start.Add(*duration)
	for i := 0; i < *threads; i++ {
		pool.Sender() <- benchTask{seed: int64(i) + 1, deadline: deadline}
	}
	pool.Stop()
	elapsed := time.Since(start)

	ops := handler.ops.Load()
	log.Infof("done: %d ops in %v (%.0f ops/s), clock %d",
		ops, elapsed, float64(ops)/elapsed.Seconds(), rt.Clock())
}

func loadConfig() *config.Config {
	if *configPath == "" {
		return config.NewDefaultConfig()
	}
	conf, err := config.FromFile(*configPath)
	if err != nil {
		log.Fatalf("load config %s: %v", *configPath, err)
	}
	return conf
}

// seedSet fills the set to half the value range so lookups hit about half
// the time.
func seedSet(rt *stm.Runtime, set *intset.IntSet) {
	ctx := stm.NewContext(rt)
	rnd := rand.New(rand.NewSource(42))
	target := *valueRange / 2
	for n := int64(0); n < target; {
		added, err := set.Add(ctx, rnd.Int63n(*valueRange))
		if err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		if added {
			n++
		}
	}
	log.Infof("seeded %d values", target)
}
