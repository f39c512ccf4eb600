// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import "testing"

func TestAccumulatorApply_GrowsAndReportsChanges(t *testing.T) {
	acc := NewAccumulator()

	changed, err := acc.Apply(map[string]any{"light": map[string]any{}})
	if err != nil || !changed {
		t.Fatalf("first mode: changed=%v err=%v", changed, err)
	}

	changed, err = acc.Apply(map[string]any{"light": map[string]any{"primary": "#12"}})
	if err != nil || !changed {
		t.Fatalf("partial value: changed=%v err=%v", changed, err)
	}

	changed, err = acc.Apply(map[string]any{"light": map[string]any{"primary": "#123456"}})
	if err != nil || !changed {
		t.Fatalf("completed value: changed=%v err=%v", changed, err)
	}

	changed, err = acc.Apply(map[string]any{"light": map[string]any{"primary": "#123456"}})
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if changed {
		t.Error("identical fragment should not report a change")
	}

	snap := acc.Snapshot()
	light := snap["light"].(map[string]any)
	if light["primary"] != "#123456" {
		t.Errorf("snapshot light.primary = %v", light["primary"])
	}
	if _, ok := snap["dark"]; ok {
		t.Error("dark should be absent before it streams")
	}
}

func TestAccumulatorApply_RejectedFragmentLeavesStateUntouched(t *testing.T) {
	acc := NewAccumulator()
	if _, err := acc.Apply(map[string]any{"light": map[string]any{"primary": "#111111"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	bad := map[string]any{
		"light": map[string]any{"primary": "#222222", "secondary": "#333333"},
		"dark":  map[string]any{"bogus": "#444444"},
	}
	if _, err := acc.Apply(bad); err == nil {
		t.Fatal("expected unknown token to be rejected")
	}

	snap := acc.Snapshot()
	light := snap["light"].(map[string]any)
	if light["primary"] != "#111111" {
		t.Errorf("primary changed to %v after rejected fragment", light["primary"])
	}
	if _, ok := light["secondary"]; ok {
		t.Error("secondary merged from rejected fragment")
	}
	if _, ok := snap["dark"]; ok {
		t.Error("dark mode recorded from rejected fragment")
	}
}

func TestAccumulatorApply_WrongTypeOnKnownToken(t *testing.T) {
	acc := NewAccumulator()
	if _, err := acc.Apply(map[string]any{"dark": map[string]any{"radius": 4.0}}); err == nil {
		t.Fatal("expected number value to be rejected")
	}
}

func TestAccumulatorFinal(t *testing.T) {
	acc := NewAccumulator()
	if _, err := acc.Apply(map[string]any{"light": completeMode()}); err != nil {
		t.Fatalf("Apply light: %v", err)
	}
	if _, err := acc.Final(); err == nil {
		t.Fatal("Final should fail while dark is missing")
	}

	if _, err := acc.Apply(completeObject()); err != nil {
		t.Fatalf("Apply full: %v", err)
	}
	styles, err := acc.Final()
	if err != nil {
		t.Fatalf("Final: %v", err)
	}
	if styles.Dark["font-sans"] != "Inter, sans-serif" {
		t.Errorf("dark.font-sans = %q", styles.Dark["font-sans"])
	}
}
