package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	"github.com/beepcard/beep-tap/internal/infrastructure/relay"
	taprequest "github.com/beepcard/beep-tap/internal/interfaces/httpserver/requests/tap"
)

var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Simulate a fare terminal on the relay",
	Long: `Open a room on the relay, print its id as the QR payload and answer every
card number published to it. Valid card numbers get the success sentinel,
anything else gets an error message.`,
	Args: cobra.NoArgs,
	RunE: runTerminal,
}

func init() {
	terminalCmd.Flags().String("relay", envOr("RELAY_URL", "ws://localhost:8191/v1/relay"), "Relay websocket URL")
	terminalCmd.Flags().String("room", "", "Room id to open (default: random UUID)")
	terminalCmd.Flags().String("sentinel", "OK", "Reply sent for accepted cards")
	terminalCmd.Flags().String("reject", "", "Reject every card with this message")
	terminalCmd.Flags().Bool("scan", false, "Also submit the room to the agent as a scanned code")
	terminalCmd.Flags().Bool("once", false, "Exit after the first reply")
}

// terminalReply decides how the simulated terminal answers a payload. An
// empty reply means the payload is ignored.
func terminalReply(payload, sentinel, reject string) string {
	payload = strings.TrimSpace(payload)
	switch {
	case payload == "":
		return ""
	case reject != "":
		return reject
	case tap.IsCardID(payload):
		return sentinel
	default:
		return "Invalid card: " + payload
	}
}

func runTerminal(cmd *cobra.Command, _ []string) error {
	relayURL, _ := cmd.Flags().GetString("relay")
	token, _ := cmd.Flags().GetString("token")
	room, _ := cmd.Flags().GetString("room")
	sentinel, _ := cmd.Flags().GetString("sentinel")
	reject, _ := cmd.Flags().GetString("reject")
	submit, _ := cmd.Flags().GetBool("scan")
	once, _ := cmd.Flags().GetBool("once")

	if room == "" {
		room = uuid.NewString()
	}
	if !tap.IsRoomID(room) {
		return fmt.Errorf("room %q is not a UUID v4", room)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, relayURL, header)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	join, err := relay.NewEnvelope(relay.EventJoinRoom, room)
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "terminal ready, room %s\n", room)

	if submit {
		codes := []camera.Code{squareCode(room, 594, 538, 80)}
		if _, err := agentFromCmd(cmd).do(http.MethodPost, "/tap/scans", taprequest.SubmitScansRequest{Codes: codes}, nil); err != nil {
			fmt.Fprintf(out, "warning: could not submit room to agent: %v\n", err)
		}
	}

	for {
		var env relay.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("relay connection closed: %w", err)
		}

		switch env.Event {
		case relay.EventError:
			fmt.Fprintf(out, "relay error: %s\n", env.Text())
			continue
		case relay.EventMessage:
		default:
			continue
		}

		payload := env.Text()
		reply := terminalReply(payload, sentinel, reject)
		if reply == "" {
			continue
		}
		fmt.Fprintf(out, "received %q, replying %q\n", payload, reply)

		frame, err := relay.NewEnvelope(relay.EventMessageToRoom, relay.RoomMessage{Room: room, Message: reply})
		if err != nil {
			return err
		}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
		if once {
			return nil
		}
	}
}
