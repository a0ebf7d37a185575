package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/ccgate/ccgate/internal/auth"
	"github.com/ccgate/ccgate/internal/balancer"
	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/limit"
	"github.com/ccgate/ccgate/internal/openai"
	"github.com/ccgate/ccgate/internal/pricing"
	"github.com/ccgate/ccgate/internal/proxy"
	"github.com/ccgate/ccgate/internal/router"
	"github.com/ccgate/ccgate/internal/usage"
)

func init() {
	os.Setenv("OTEL_SERVICE_NAME", "ccgate")
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "0.0.0.0:4317")
	}
	os.Setenv("OTEL_TRACES_SAMPLER", "always_on")
	_ = godotenv.Load()
}

func main() {
	tp := initTracer()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	configDir := os.Getenv("CCGATE_CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	cfgStore, err := config.NewStore(configDir)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configDir, err)
	}

	snap := cfgStore.Snapshot()
	authn := auth.New(cfgStore)
	usageDir := os.Getenv("CCGATE_USAGE_DIR")
	if usageDir == "" {
		usageDir = "data/usage"
	}
	usageStore := usage.NewStore(usageDir)
	pricer := pricing.New(snap.Pricing)
	guard := limit.New(usageStore, pricer)
	lb := balancer.New(snap.Upstreams, snap.LoadBalancer)
	defer lb.Close()

	cfgStore.Subscribe(func(newSnap *config.Snapshot) {
		lb.Reload(newSnap.Upstreams, newSnap.LoadBalancer)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cfgStore.Watch(ctx); err != nil {
		log.Printf("config hot-reload disabled: %v", err)
	}

	p := proxy.New(cfgStore, authn, guard, lb, usageStore, pricer)
	translator := openai.New(p, cfgStore)

	app := router.New(p, translator, otelfiber.Middleware(), logger.New())

	port := os.Getenv("PORT")
	if port == "" && snap.Server.Server.Port > 0 {
		port = strconv.Itoa(snap.Server.Server.Port)
	}
	if port == "" {
		port = "8080"
	}
	log.Println("starting ccgate on :" + port)
	log.Fatal(app.Listen(":" + port))
}

func initTracer() *sdktrace.TracerProvider {
	ctx := context.Background()

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	serviceName := os.Getenv("OTEL_SERVICE_NAME")

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithDialOption(grpc.WithBlock()),
	)
	if err != nil {
		log.Fatalf("failed to create OTLP exporter: %v", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		log.Fatalf("failed to create resource: %v", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp
}
