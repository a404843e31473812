package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	taprequest "github.com/beepcard/beep-tap/internal/interfaces/httpserver/requests/tap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tap session status",
	Args:  cobra.NoArgs,
	RunE:  agentCall(http.MethodGet, "/tap/status"),
}

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Start a tap session (screen focused)",
	Args:  cobra.NoArgs,
	RunE:  agentCall(http.MethodPost, "/tap/session"),
}

var blurCmd = &cobra.Command{
	Use:     "blur",
	Aliases: []string{"stop"},
	Short:   "End the tap session (screen left)",
	Args:    cobra.NoArgs,
	RunE:    agentCall(http.MethodDelete, "/tap/session"),
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Reconnect the relay channel after a failure",
	Args:  cobra.NoArgs,
	RunE:  agentCall(http.MethodPost, "/tap/reconnect"),
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between the front and back camera",
	Args:  cobra.NoArgs,
	RunE:  agentCall(http.MethodPost, "/tap/camera/toggle"),
}

var permissionCmd = &cobra.Command{
	Use:   "permission [grant|deny|revoke]",
	Short: "Show, answer or revoke the camera permission",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPermission,
}

var scanCmd = &cobra.Command{
	Use:   "scan <payload>...",
	Short: "Submit decoded QR payloads as one camera frame",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func agentCall(method, path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		raw, err := agentFromCmd(cmd).do(method, path, nil, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	}
}

func runPermission(cmd *cobra.Command, args []string) error {
	agent := agentFromCmd(cmd)
	if len(args) == 0 {
		raw, err := agent.do(http.MethodGet, "/tap/camera/permission", nil, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	}

	if args[0] == "revoke" {
		raw, err := agent.do(http.MethodDelete, "/tap/camera/permission", nil, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	}

	var granted bool
	switch args[0] {
	case "grant", "allow":
		granted = true
	case "deny":
		granted = false
	default:
		parsed, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("expected grant or deny, got %q", args[0])
		}
		granted = parsed
	}

	raw, err := agent.do(http.MethodPost, "/tap/camera/permission", taprequest.PermissionAnswerRequest{Granted: &granted}, nil)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), raw)
}

func init() {
	scanCmd.Flags().Float64("x", 594, "Horizontal centre of the codes in frame pixels")
	scanCmd.Flags().Float64("y", 538, "Vertical centre of the codes in frame pixels")
	scanCmd.Flags().Float64("size", 80, "Edge length of the codes in frame pixels")
}

// squareCode places payload as an axis-aligned square centred on (x, y).
func squareCode(payload string, x, y, size float64) camera.Code {
	h := size / 2
	return camera.Code{
		Payload: payload,
		Corners: []tap.Point{
			{X: x - h, Y: y - h},
			{X: x + h, Y: y - h},
			{X: x + h, Y: y + h},
			{X: x - h, Y: y + h},
		},
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")
	size, _ := cmd.Flags().GetFloat64("size")

	codes := make([]camera.Code, 0, len(args))
	for _, payload := range args {
		codes = append(codes, squareCode(payload, x, y, size))
	}
	raw, err := agentFromCmd(cmd).do(http.MethodPost, "/tap/scans", taprequest.SubmitScansRequest{Codes: codes}, nil)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), raw)
}
