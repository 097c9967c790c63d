// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadProgram(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"go.mod":     "module example.com/prog\n\ngo 1.20\n",
		"main.go":    "package main\n\nimport \"example.com/prog/lib\"\n\nfunc main() { lib.F() }\n",
		"lib/lib.go": "package lib\n\nfunc F() {}\n",
	})
	cfg := &packages.Config{Mode: PkgLoadMode, Dir: dir}
	loaded, err := LoadProgram(cfg, "", ssa.BuilderMode(0), []string{"./..."})
	if err != nil {
		t.Fatalf("error loading packages: %v", err)
	}
	if len(loaded.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(loaded.Packages))
	}
	main := loaded.Program.ImportedPackage("example.com/prog")
	if main == nil || main.Func("main") == nil {
		t.Fatalf("main package was not built")
	}
	if len(main.Func("main").Blocks) == 0 {
		t.Errorf("main has no body")
	}
}

func TestLoadProgramErrors(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"go.mod":  "module example.com/broken\n\ngo 1.20\n",
		"main.go": "package main\n\nfunc main() { undefined() }\n",
	})
	cfg := &packages.Config{Mode: PkgLoadMode, Dir: dir}
	if _, err := LoadProgram(cfg, "", ssa.BuilderMode(0), []string{"./..."}); err == nil {
		t.Errorf("expected an error for a package that does not type check")
	}
}
