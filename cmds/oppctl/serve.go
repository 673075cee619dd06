package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lprylli/oppctl/httpapi"
	"github.com/lprylli/oppctl/log"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(g *globals) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish the endpoints over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.close()
			if listen == "" {
				listen = s.cfg.Listen
			}

			srv := httpapi.New(s.surface, log.DefaultLogger)
			if err := s.surface.Publish(srv); err != nil {
				return err
			}
			l, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errc := make(chan error, 1)
			go func() { errc <- srv.Serve(l) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			log.Infof("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warnf("shutdown: %v", err)
			}
			return <-errc
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default OPPCTL_LISTEN)")
	return cmd
}
