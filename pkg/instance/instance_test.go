package instance

import "testing"

func TestIDFallsBackThroughSources(t *testing.T) {
	t.Setenv("SERVICECART_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.1")
	t.Setenv("HOSTNAME", "pod-abc")
	if got := ID(); got != "web.1" {
		t.Fatalf("expected dyno name, got %q", got)
	}

	t.Setenv("SERVICECART_INSTANCE_ID", "api-7")
	if got := ID(); got != "api-7" {
		t.Fatalf("expected explicit id, got %q", got)
	}

	t.Setenv("SERVICECART_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	if got := ID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
