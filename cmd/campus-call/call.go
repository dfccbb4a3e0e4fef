package main

import (
	"Campus/internal/configuration"
	"Campus/internal/signaling"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start [callee-id]",
	Short: "Publish an offer and wait for the callee",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		callee := ""
		if len(args) == 1 {
			callee = args[0]
		}
		return runCall(cmd, func(ctx context.Context, call *signaling.Call) error {
			id, err := call.StartCall(ctx, callee)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session id: %s\n", id)
			return nil
		})
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <session-id>",
	Short: "Answer a call by its shared session id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, call *signaling.Call) error {
			return call.AnswerCall(ctx, args[0])
		})
	},
}

// runCall builds the container, runs begin and then blocks until the call
// ends or the process is interrupted, hanging up on the way out.
func runCall(cmd *cobra.Command, begin func(context.Context, *signaling.Call) error) error {
	configPath, _ := cmd.Flags().GetString("config")
	userID, _ := cmd.Flags().GetString("user")

	container, err := configuration.BuildContainer(configPath)
	if err != nil {
		return err
	}
	defer container.Close()

	log := container.Logger
	if container.Config.Store.Driver != configuration.DriverMongo {
		log.Warn("memory store is private to this process; the other side will not see the call")
	}

	peer, err := container.Media()
	if err != nil {
		return fmt.Errorf("create media peer: %w", err)
	}

	ended := make(chan struct{})
	call := signaling.NewCall(container.Exchange, peer, userID, log.Named("call"))
	call.OnStateChange(func(s signaling.CallState) {
		log.Info("call state changed", zap.String("state", s.String()))
		if s == signaling.CallEnded {
			close(ended)
		}
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := begin(ctx, call); err != nil {
		_ = peer.Close()
		return err
	}

	select {
	case <-ended:
	case <-ctx.Done():
	}

	hangCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return call.HangUp(hangCtx)
}
