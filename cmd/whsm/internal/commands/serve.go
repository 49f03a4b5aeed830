package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/bigbrett/wolfHSM/whsm/config"
	"github.com/bigbrett/wolfHSM/whsm/module"
	"github.com/bigbrett/wolfHSM/whsm/transport/grpccomm"
	"github.com/bigbrett/wolfHSM/whsm/transport/quic"
)

func InitServeCommand(rootCmd *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference module on QUIC or gRPC",
		RunE:  serveCmd,
	}
	cmd.Flags().Uint32("server-id", 0, "override server id reported at comm init")
	cmd.Flags().Int("cache-slots", 16, "volatile key cache slots")
	rootCmd.AddCommand(cmd)
}

func serveCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if s.Transport == config.TransportMem {
		return fmt.Errorf("serve needs --transport quic or grpc")
	}
	logger, closer, err := setupLogger(s)
	if err != nil {
		return err
	}
	defer closer.Close()

	serverID := s.ServerID
	if cmd.Flags().Changed("server-id") {
		serverID, _ = cmd.Flags().GetUint32("server-id")
	}
	slots, _ := cmd.Flags().GetInt("cache-slots")
	srv := module.New(module.Options{
		MTU:        s.MTU,
		ServerID:   serverID,
		CacheSlots: slots,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch s.Transport {
	case config.TransportQUIC:
		ln, err := quic.Listen(s.Address)
		if err != nil {
			return err
		}
		defer ln.Close()
		logger.Info("module listening", "transport", s.Transport, "address", ln.AddrString(),
			"pin_sha256", hex.EncodeToString(ln.Fingerprint()))
		return quic.Serve(ctx, ln, srv, quic.ServeOptions{MTU: s.MTU, Compress: s.Compress, Logger: logger})

	default:
		lis, err := net.Listen("tcp", s.Address)
		if err != nil {
			return err
		}
		gs := grpc.NewServer()
		grpccomm.RegisterCommServer(gs, &grpccomm.Server{Handler: srv, MTU: s.MTU})
		go func() {
			<-ctx.Done()
			gs.GracefulStop()
		}()
		logger.Info("module listening", "transport", s.Transport, "address", lis.Addr().String())
		return gs.Serve(lis)
	}
}
