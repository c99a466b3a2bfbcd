package main

import (
	"context"
	"testing"

	"github.com/keithlinneman/reqtiming/internal/log"
)

type namedLogger struct {
	log.Logger
	name string
}

func TestDetachedContext_OutlivesParent(t *testing.T) {
	L := &namedLogger{Logger: log.Nop(), name: "server"}
	parent, cancelParent := context.WithCancel(log.WithContext(context.Background(), L))

	ctx, cancel := detachedContext(parent)
	defer cancel()

	cancelParent()
	if err := ctx.Err(); err != nil {
		t.Fatalf("detached context canceled with its parent: %v", err)
	}
	if log.FromContext(ctx) != L {
		t.Fatal("detached context lost the parent's logger")
	}

	cancel()
	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancel should end the detached context")
	}
}
