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

// Package analysis loads Go programs in SSA form for the analyses of the module.
package analysis

import (
	"fmt"
	"go/token"
	"os"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode in the analyses. We load all possible information.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram represents a loaded program.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages are the SSA packages of the patterns given to LoadProgram, in the order of packages.Load.
	Packages []*ssa.Package
}

// LoadProgram loads the packages matching patterns and builds the SSA of the whole program with buildmode.
// If cfg is nil, the packages are loaded from the current directory with PkgLoadMode. If platform is not empty, it
// is used as GOOS.
func LoadProgram(cfg *packages.Config, platform string, buildmode ssa.BuilderMode,
	patterns []string) (LoadedProgram, error) {
	if cfg == nil {
		cfg = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}
	if platform != "" {
		cfg.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	initialPackages, err := packages.Load(cfg, patterns...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages matching %v", patterns)
	}
	if n := packages.PrintErrors(initialPackages); n > 0 {
		return LoadedProgram{}, fmt.Errorf("%d errors found while loading packages", n)
	}

	program, ssaPackages := ssautil.AllPackages(initialPackages, buildmode)
	for i, p := range ssaPackages {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
	}
	program.Build()
	return LoadedProgram{Program: program, Packages: ssaPackages}, nil
}
