/*
 * Copyright 2026 the notarystore authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}
	for _, tc := range cases {
		if got := ParseLogLevel(tc.in); got != tc.want {
			t.Errorf("ParseLogLevel(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestLoggerRegistry(t *testing.T) {
	logger := NewLogger("REGISTRY_TEST")
	if logger == nil {
		t.Fatal("expected logger")
	}

	// Same name returns the same instance.
	if NewLogger("REGISTRY_TEST") != logger {
		t.Fatal("expected registry to reuse the named logger")
	}

	if !SetLoggerLevel("REGISTRY_TEST", "debug") {
		t.Fatal("expected level change on registered logger")
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}

	if SetLoggerLevel("NOT_REGISTERED", "debug") {
		t.Fatal("expected false for unknown logger name")
	}
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("NOTARYSTORE_TEST_STR", "value")
	if got := EnvDefaultString("NOTARYSTORE_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %q", got)
	}
	if got := EnvDefaultString("NOTARYSTORE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("NOTARYSTORE_TEST_BOOL", "true")
	if !EnvDefaultBool("NOTARYSTORE_TEST_BOOL", false) {
		t.Fatal("expected true from env")
	}
	if EnvDefaultBool("NOTARYSTORE_TEST_BOOL_MISSING", false) {
		t.Fatal("expected fallback false")
	}
}
