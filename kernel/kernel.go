package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cpuModels "github.com/sisoputnfrba/tp-weensy-magiOS/cpu/models"
	cpuServices "github.com/sisoputnfrba/tp-weensy-magiOS/cpu/services"
	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/helpers"
	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/services"
	memoryHandler "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/handlers"
	memoryHelpers "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/helpers"
	memServices "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/services"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/config"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/log"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/web/handlers"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/web/server"
)

const (
	ConfigPath = "kernel/configs/kernel.json"
	LogPath    = "./logs/kernel.log"
)

func main() {
	os.Exit(run())
}

func run() int {
	models.KernelConfig = models.DefaultConfig()
	configPath := ConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	config.InitConfig(configPath, models.KernelConfig)
	closeLog := log.InitLogger(LogPath, models.KernelConfig.LogLevel)
	defer closeLog()

	cfg := models.KernelConfig
	slog.Debug(fmt.Sprintf("Port Kernel: %d", cfg.PortKernel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	helpers.WatchKeyboard(ctx, stop)

	mm, err := memServices.NewMemoryManager(cfg.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("Error al inicializar la memoria: %v", err))
		return 1
	}
	images := cpuModels.Catalog()
	kernel := services.NewKernel(mm, cfg.Nproc, memServices.NewImageLoader(mm, images), helpers.NewContextPlatform(ctx))

	store := &memServices.SnapshotStore{}
	kernel.AddVisualizer(store)
	if cfg.MemshowPngPath != "" {
		if err := memoryHelpers.PrepareOutput(cfg.MemshowPngPath); err == nil {
			kernel.AddVisualizer(&memServices.PNGMemshow{Path: cfg.MemshowPngPath, Every: cfg.MemshowEveryTicks})
		}
	}
	if cfg.ConsoleMemshow {
		kernel.AddVisualizer(&memServices.ConsoleMemshow{
			Writer:   os.Stdout,
			Every:    cfg.MemshowEveryTicks,
			Renderer: memServices.TextRenderer{ANSI: true},
		})
	}

	for i, program := range cfg.Programs {
		if err := kernel.CreateProcess(i+1, program); err != nil {
			slog.Error(fmt.Sprintf("## (%d) No se pudo crear el proceso - Programa: %d: %v", i+1, program, err))
			return 1
		}
	}

	if cfg.PortKernel != 0 {
		go startServer(ctx, cfg.PortKernel, store)
	}

	first, err := kernel.Run(1)
	if err != nil {
		slog.Error(fmt.Sprintf("No se pudo iniciar la ejecución: %v", err))
		return 1
	}
	machine := cpuServices.NewMachine(kernel, mm.Memory, images, cfg.CPU)
	if err := machine.Run(first); err != nil {
		slog.Error(fmt.Sprintf("Sistema detenido: %v", err))
		return 2
	}

	slog.Info(fmt.Sprintf("Sistema detenido - Ticks: %d - Procesos rotos: %v", kernel.Ticks(), kernel.BrokenPids()))
	return 0
}

func startServer(ctx context.Context, port int, store *memServices.SnapshotStore) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", handlers.HandshakeHandler("Bienvenido al módulo de Kernel"))
	mux.HandleFunc("GET /kernel", handlers.HandshakeHandler("Kernel en funcionamiento 🚀"))
	mux.HandleFunc("GET /memoria/snapshot", memoryHandler.SnapshotHandler(store))
	mux.HandleFunc("GET /memoria/virtual/{pid}", memoryHandler.VirtualHandler(store))
	mux.HandleFunc("GET /memoria/memshow", memoryHandler.MemshowTextHandler(store))
	mux.HandleFunc("GET /memoria/memshow.png", memoryHandler.MemshowPNGHandler(store, memServices.PNGRenderer{}))

	if err := server.InitServer(ctx, port, mux); err != nil {
		slog.Error(fmt.Sprintf("error initializing server: %v", err))
	}
}
