package main

import (
	"fmt"

	"github.com/quayside/chandler/pkg/events"
)

// progressPrinter renders provisioning events as concise console lines,
// complementing the structured log. Returned stop must be called before
// the broker shuts down.
func progressPrinter(broker *events.Broker) (stop func()) {
	sub := broker.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for event := range sub {
			line, ok := progressLine(event)
			if ok {
				fmt.Println(line)
			}
		}
	}()

	return func() {
		broker.Unsubscribe(sub)
		<-done
	}
}

// progressLine formats the events worth a console line; the rest stay in
// the structured log only
func progressLine(event *events.Event) (string, bool) {
	switch event.Type {
	case events.EventModuleInstallStarted:
		return fmt.Sprintf("==> %s", event.Module), true
	case events.EventModuleInstallCompleted:
		return fmt.Sprintf("    %s installed", event.Module), true
	case events.EventModuleInstallFailed:
		return fmt.Sprintf("    %s FAILED: %s", event.Module, event.Message), true
	case events.EventInstanceFallback:
		return fmt.Sprintf("    %s falling back to %s", event.Instance, event.Metadata["image"]), true
	case events.EventInstanceReady:
		return fmt.Sprintf("    %s ready", event.Instance), true
	case events.EventConfigRejected:
		return fmt.Sprintf("    config rejected: %s", event.Message), true
	case events.EventBackupCompleted:
		return fmt.Sprintf("    backup %s -> %s", event.Metadata["target"], event.Message), true
	}
	return "", false
}
