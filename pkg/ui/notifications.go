package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"profilescout/pkg/models"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier announces the end of long runs on the console and, when supported,
// as a desktop notification
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender of the current platform
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: &LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: &MacOSNotificationSender{}}
	default:
		return &Notifier{}
	}
}

// NewNotifierWith uses a custom sender; nil prints to the console only
func NewNotifierWith(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// RunFinished announces a finished discovery run
func (n *Notifier) RunFinished(s models.RunSummary) {
	msg := fmt.Sprintf("%d profiles accepted, %d of %d queries executed", s.Accepted, s.QueriesExecuted, s.QueriesPlanned)
	if s.TerminatedEarly {
		n.send(Yellow, "Discovery stopped early", msg+" ("+strings.ReplaceAll(s.TerminationReason, "_", " ")+")")
		return
	}
	n.send(Green, "Discovery complete", msg)
}

// RunFailed announces a run that could not start or finish
func (n *Notifier) RunFailed(err error) {
	n.send(Red, "Discovery failed", err.Error())
}

func (n *Notifier) send(color func(string) string, title, message string) {
	fmt.Fprintf(Out, "\n%s: %s\n", color(title), message)

	if n.sender != nil {
		// desktop notifications are best effort
		_ = n.sender.Send("profilescout: "+title, message)
	}
}
