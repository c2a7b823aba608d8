// run-scheduler fires due scheduler tasks once and exits. Intended for
// cron or a Cloud Run job, as an alternative to hitting the HTTP tick
// endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil || config.GetRedisDB() == nil {
		fmt.Fprintln(os.Stderr, "database or redis not initialized. Set DB_* and REDIS_* env vars.")
		os.Exit(1)
	}

	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	summaries, err := scheduler.NewRunner().RunDueTasks(runCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduler tick failed: %v\n", err)
		os.Exit(1)
	}
	for _, s := range summaries {
		fmt.Printf("%s: %s (%d enviados, %d con error) %s\n", s.Kind, s.Status, s.ItemsSent, s.ItemsError, s.Message)
	}
	if len(summaries) == 0 {
		fmt.Println("no tasks due")
	}
}
