// avsplayer connects a device to the voice service downchannel and
// plays Speak and Play directives through an audio sink. With -play it
// instead plays a single URL (or stdin) locally and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexa/avs-device-sdk-go/internal/config"
	"github.com/alexa/avs-device-sdk-go/internal/log"
	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
	"github.com/alexa/avs-device-sdk-go/pkg/auth"
	"github.com/alexa/avs-device-sdk-go/pkg/avs"
	"github.com/alexa/avs-device-sdk-go/pkg/contentfetcher"
	"github.com/alexa/avs-device-sdk-go/pkg/diag"
	"github.com/alexa/avs-device-sdk-go/pkg/mediaplayer"
)

func main() {
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	gateway := flag.String("gateway", "", "Downchannel gateway URL (overrides AVS_GATEWAY_URL)")
	diagPort := flag.String("diag-port", "", "Diagnostics server port (overrides AVS_DIAG_PORT)")
	out := flag.String("out", "-", "Audio output: file path, or - for stdout")
	play := flag.String("play", "", "Play one URL (or - for stdin) locally and exit")
	flag.Parse()

	config.LoadDotenv()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	if *gateway == "" {
		*gateway = config.GatewayURL()
	}
	if *diagPort == "" {
		*diagPort = config.DiagPort()
	}

	sink, err := openSink(*out)
	if err != nil {
		log.Error("audio output failed", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	registry := attachment.New()

	player, err := mediaplayer.New(registry, sink)
	if err != nil {
		log.Error("player setup failed", "error", err)
		os.Exit(1)
	}

	fetcher, err := contentfetcher.New(registry)
	if err != nil {
		log.Error("fetcher setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	diagSrv := diag.NewServer(registry, diag.WithPlayer(player))
	diagSrv.StartAsync(*diagPort)
	defer diagSrv.Shutdown()

	if *play != "" {
		if err := playLocal(ctx, *play, player, fetcher, registry); err != nil {
			log.Error("playback failed", "source", *play, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runConnected(ctx, *gateway, registry, player, fetcher); err != nil {
		log.Error("downchannel session failed", "error", err)
		os.Exit(1)
	}
}

// playLocal plays one source through the sink and returns when playback
// finishes.
func playLocal(ctx context.Context, source string, player *mediaplayer.Player, fetcher *contentfetcher.Fetcher, registry *attachment.Manager) error {
	var id string
	if source == "-" {
		id = registry.GenerateAttachmentID("local", "stdin")
		if err := registry.CreateAttachment(id, os.Stdin); err != nil {
			return err
		}
	} else {
		fetched, err := fetcher.Fetch(ctx, source)
		if err != nil {
			return err
		}
		id = fetched
	}

	if err := player.Play(ctx, id); err != nil {
		return err
	}
	player.Wait()
	return nil
}

// runConnected holds the downchannel session until the context ends.
func runConnected(ctx context.Context, gateway string, registry *attachment.Manager, player *mediaplayer.Player, fetcher *contentfetcher.Fetcher) error {
	tokens, err := auth.New(
		auth.WithClientID(config.ClientID()),
		auth.WithClientSecret(config.ClientSecret()),
		auth.WithRefreshToken(config.RefreshToken()),
		auth.WithTokenURL(config.TokenURL()),
	)
	if err != nil {
		return err
	}

	client, err := avs.New(registry, tokens, avs.WithGatewayURL(gateway))
	if err != nil {
		return err
	}

	client.AddDirectiveHandler(func(d *avs.Directive) {
		handleDirective(ctx, d, player, fetcher)
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	log.Info("device ready", "gateway", gateway)
	<-ctx.Done()
	player.Stop()
	log.Info("shutting down")
	return nil
}

// openSink builds the audio output sink from the -out flag.
func openSink(out string) (mediaplayer.SinkWithStats, error) {
	if out == "-" {
		return mediaplayer.NewWriterSink(os.Stdout, "stdout"), nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	return mediaplayer.NewWriterSink(f, "file"), nil
}

// speakPayload is the audio-bearing part of Speak and Play directives.
type speakPayload struct {
	URL string `json:"url"`
}

// handleDirective starts playback for audio directives. Attachment URLs
// play straight from the downchannel stream; remote URLs are fetched
// into the registry first.
func handleDirective(ctx context.Context, d *avs.Directive, player *mediaplayer.Player, fetcher *contentfetcher.Fetcher) {
	switch d.Header.Namespace + "." + d.Header.Name {
	case "SpeechSynthesizer.Speak", "AudioPlayer.Play":
	default:
		log.Debug("ignoring directive",
			"namespace", d.Header.Namespace, "name", d.Header.Name)
		return
	}

	var payload speakPayload
	if err := json.Unmarshal(d.Payload, &payload); err != nil || payload.URL == "" {
		log.Warn("directive has no playable url", "messageId", d.Header.MessageID)
		return
	}

	id := avs.ContentID(payload.URL)
	if id == "" {
		fetched, err := fetcher.Fetch(ctx, payload.URL)
		if err != nil {
			log.Error("content fetch failed", "url", payload.URL, "error", err)
			return
		}
		id = fetched
	}

	go func() {
		if err := player.Play(ctx, id); err != nil {
			log.Error("playback failed", "id", id, "error", err)
		}
	}()
}
