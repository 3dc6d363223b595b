package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"spectra/internal/analysis"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
)

func newServeCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file.wav>...",
		Short: "Publish the spectra of files to websocket and UDP clients",
		Long: "Publish the spectra of files to websocket and UDP clients.\n\n" +
			"Every block of every file is transformed and sent as one frame per channel.\n" +
			"With a websocket address the server stays up after the last file until\n" +
			"interrupted, so late clients still receive the latest frames.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.serve(cmd.Context(), args)
		},
	}

	cmd.Flags().StringVarP(&o.engine, "engine", "e", config.DefaultEngine,
		"Transform engine: fft, dft or gonum")
	cmd.Flags().StringVar(&o.wsAddr, "ws-addr", "",
		"Serve frames as JSON on ws://<addr>/ws (e.g. :8080)")
	cmd.Flags().StringVar(&o.udpTarget, "udp-target", "",
		"Send frames as binary packets to host:port")
	cmd.Flags().Float64Var(&o.sendRate, "send-rate", config.DefaultSendRate,
		"Frames per second sent to network transports")
	cmd.Flags().BoolVar(&o.loop, "loop", false,
		"Start over after the last file until interrupted")

	return cmd
}

// transports opens every configured transport. Frames are always logged at
// debug level; network transports are added when addressed.
func (o *options) transports() (transport.Multi, *transport.WebSocketTransport, error) {
	t := o.cfg.Transport
	out := transport.Multi{transport.NewLoggingTransport()}

	var ws *transport.WebSocketTransport
	if t.WebSocketAddr != "" {
		var err error
		ws, err = transport.NewWebSocketTransport(t.WebSocketAddr, t.SendRate, transport.DefaultReplay)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, ws)
	}

	if t.UDPTarget != "" {
		sender, err := udp.NewUDPSender(t.UDPTarget)
		if err != nil {
			out.Close()
			return nil, nil, err
		}
		pub, err := udp.NewUDPPublisher(sender, t.SendRate)
		if err != nil {
			sender.Close()
			out.Close()
			return nil, nil, err
		}
		out = append(out, pub)
	}

	if len(out) == 1 {
		applog.Warnf("serve: no --ws-addr or --udp-target configured; frames are only logged")
	}
	return out, ws, nil
}

func (o *options) serve(ctx context.Context, files []string) error {
	transports, ws, err := o.transports()
	if err != nil {
		return err
	}
	defer func() {
		if err := transports.Close(); err != nil {
			applog.Errorf("serve: closing transports: %v", err)
		}
	}()

	a, err := o.analyzer("", analysis.Options{Transport: transports})
	if err != nil {
		return err
	}
	applog.Infof("serve: session %s", a.Session())

	for {
		for _, path := range files {
			if err := a.Stream(ctx, path, nil); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		if !o.loop {
			break
		}
	}
	applog.Infof("serve: all files published")

	if ws != nil {
		applog.Infof("serve: waiting for interrupt")
		<-ctx.Done()
	}
	return nil
}
