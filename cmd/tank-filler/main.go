// Command tank-filler controls an automated water-tank filling valve and pump:
// it meters flow through a pulse sensor, runs the day-of-week fill schedule,
// closes the valve when a scheduled fill stalls, and serves status over HTTP
// and MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mrocca/tank-filler/internal/config"
	"github.com/mrocca/tank-filler/internal/control"
	"github.com/mrocca/tank-filler/internal/flow"
	"github.com/mrocca/tank-filler/internal/gpio"
	"github.com/mrocca/tank-filler/internal/mqtt"
	"github.com/mrocca/tank-filler/internal/status"
	"github.com/mrocca/tank-filler/internal/store"
	"github.com/mrocca/tank-filler/internal/web"
)

// tickBackoff is the pause after a recovered tick failure before the loop
// resumes.
const tickBackoff = 2 * time.Second

func main() {
	poll := flag.Duration("poll", 200*time.Millisecond, "Control loop polling interval (state advances once per second)")
	statusEvery := flag.Duration("status-interval", 5*time.Second, "MQTT status snapshot interval (0 to disable)")
	broker := flag.String("broker", "tcp://192.168.68.20:1883", "MQTT broker address")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	configPath := flag.String("config", "/etc/tank-filler/config.json", "Configuration file path")
	logPath := flag.String("water-log", "/var/lib/tank-filler/water_log.json", "Water total log path")
	pinFlow := flag.Int("pin-flow", gpio.DefaultPinFlow, "BCM pin number for the flow sensor")
	pinValve := flag.Int("pin-valve", gpio.DefaultPinValve, "BCM pin number for the valve relay")
	pinMotor := flag.Int("pin-motor", gpio.DefaultPinMotor, "BCM pin number for the motor relay")
	printState := flag.Bool("print-state", false, "Print effective config and persisted total, then exit")

	flag.Parse()

	if err := run(*poll, *statusEvery, *broker, *httpAddr, *configPath, *logPath, *pinFlow, *pinValve, *pinMotor, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll, statusEvery time.Duration, broker, httpAddr, configPath, logPath string, pinFlow, pinValve, pinMotor int, printState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st := store.New(logPath)
	total, err := st.Load()
	if err != nil {
		// A corrupt log must not keep the tank from filling; start the
		// counter over and let the operator see the warning.
		log.Printf("water log unreadable, starting total at 0: %v", err)
		total = 0
	}

	if printState {
		fmt.Printf("k_factor: %.1f pulses/L\n", cfg.KFactor)
		fmt.Printf("stall_timeout: %ds\n", cfg.StallTimeoutSec)
		fmt.Printf("weekday: %v\n", cfg.WeekdayTimes)
		fmt.Printf("weekend: %v\n", cfg.WeekendTimes)
		fmt.Printf("total: %.2f L\n", total)
		return nil
	}

	sched, err := cfg.Schedule()
	if err != nil {
		return err
	}

	// Initialize GPIO. The pulse callback runs on the gpiocdev event
	// goroutine; the atomic counter is the only state it touches.
	counter := flow.NewCounter()
	io, err := gpio.NewRealIO(pinFlow, pinValve, pinMotor, counter.Pulse)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer io.Close()

	acts := control.NewActuators(io.Valve(), io.Motor())
	ctrl := control.NewController(counter, acts, sched, control.Calibration{
		KFactor:      cfg.KFactor,
		StallTimeout: cfg.StallTimeout(),
		MaxFill:      cfg.MaxFill(),
	}, total)

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(broker)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so the snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:           poll.Milliseconds(),
		StatusIntervalMs: statusEvery.Milliseconds(),
		SaveIntervalMs:   cfg.SaveInterval().Milliseconds(),
		Broker:           broker,
		HTTPAddr:         httpAddr,
		KFactor:          cfg.KFactor,
		StallTimeoutSec:  cfg.StallTimeoutSec,
		MaxFillSec:       cfg.MaxFillSec,
		Timezone:         cfg.Timezone,
	})
	tracker.SetSchedule(cfg.WeekdayTimes, cfg.WeekendTimes)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	nowLocal := func() time.Time { return time.Now().In(loc) }

	// Start HTTP status/command server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, ctrl, nowLocal)
		srv.OnEvents = func(events []control.Event) {
			for _, e := range events {
				log.Printf("event: %s (%s)", e.Type, e.Cause)
				if err := publisher.Publish(e); err != nil {
					log.Printf("publish error: %v", err)
				}
			}
		}

		var cfgMu sync.Mutex
		srv.OnScheduleChange = func() {
			weekday, weekend := ctrl.ScheduleEntries()
			cfgMu.Lock()
			defer cfgMu.Unlock()
			cfg.WeekdayTimes = config.FormatTimes(weekday)
			cfg.WeekendTimes = config.FormatTimes(weekend)
			if err := cfg.Save(configPath); err != nil {
				log.Printf("failed to persist schedule: %v", err)
			} else {
				log.Printf("schedule persisted: weekday=%v weekend=%v", cfg.WeekdayTimes, cfg.WeekendTimes)
			}
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", httpAddr)
	}

	log.Printf("started: poll=%v status=%v broker=%s k=%.1f stall=%ds",
		poll, statusEvery, broker, cfg.KFactor, cfg.StallTimeoutSec)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, st, publisher, publisher, tracker, cfg.SaveInterval(), statusEvery, nowLocal, ticker.C, sigCh)
}

func runLoop(ctrl *control.Controller, st *store.Store, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, saveEvery, statusEvery time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	start := now()
	lastSecond := -1
	lastSave := start
	lastStatus := start

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			t := now()
			if st != nil {
				if err := st.Save(ctrl.Snapshot(t).LitersTotal, t); err != nil {
					log.Printf("failed to save water log at shutdown: %v", err)
				}
			}

			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()

			// The loop polls sub-second for command responsiveness, but
			// controller state advances only on second boundaries.
			if t.Second() == lastSecond {
				continue
			}
			lastSecond = t.Second()

			tickOnce(ctrl, publisher, t)

			if tracker != nil {
				tracker.Update(ctrl.Snapshot(t))
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if st != nil && t.Sub(lastSave) >= saveEvery {
				if err := st.Save(ctrl.Snapshot(t).LitersTotal, t); err != nil {
					log.Printf("failed to save water log: %v", err)
				}
				lastSave = t
			}

			if tracker != nil && statusEvery > 0 && t.Sub(lastStatus) >= statusEvery {
				snap := tracker.Snapshot()
				hb := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hb); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
				lastStatus = t
			}
		}
	}
}

// tickOnce runs a single controller tick with panic recovery: one bad tick
// must never take the daemon down. Actuators keep their last commanded state
// across a recovered failure, and the next tick re-evaluates the stall guard
// immediately.
func tickOnce(ctrl *control.Controller, publisher mqtt.Publisher, t time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tick panic: %v (backing off %v)", r, tickBackoff)
			time.Sleep(tickBackoff)
		}
	}()

	events, err := ctrl.Tick(t)
	if err != nil {
		log.Printf("tick error: %v", err)
	}

	for _, e := range events {
		log.Printf("event: %s (%s, valve=%v motor=%v)", e.Type, e.Cause, e.ValveOpen, e.MotorOn)
		if err := publisher.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}
}
