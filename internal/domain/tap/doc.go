// Package tap implements the tap session coordinator that lets a phone pay
// at a fare terminal by scanning the terminal's QR room id.
//
// The coordinator provides:
//   - Relay channel lifecycle with a single reconnect attempt per drop
//   - Serialized camera permission requests
//   - QR scan filtering by room id format and scan region
//   - Join room and publish of the selected card number
//   - Outcome resolution from the terminal's reply or a timeout
//
// All session state changes go through Machine.Transition on the Run
// goroutine. Callbacks from adapters carry a Generation and are dropped once
// the session they belong to has ended.
package tap
