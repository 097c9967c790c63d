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

package taint

import (
	"go/types"

	"github.com/awslabs/argot-ifds/analysis/config"
	"golang.org/x/tools/go/ssa"
)

// CalleeIdentifier returns the code identifier of the function called by common, and false if the callee is not
// known statically and the call is not a method invocation.
func CalleeIdentifier(common *ssa.CallCommon) (config.CodeIdentifier, bool) {
	if common == nil {
		return config.CodeIdentifier{}, false
	}
	if common.IsInvoke() {
		if common.Method == nil || common.Method.Pkg() == nil {
			return config.CodeIdentifier{}, false
		}
		return config.CodeIdentifier{
			Package:  common.Method.Pkg().Path(),
			Receiver: typeName(common.Value.Type()),
			Method:   common.Method.Name(),
		}, true
	}
	f := common.StaticCallee()
	if f == nil {
		return config.CodeIdentifier{}, false
	}
	pkg := packagePath(f)
	if pkg == "" {
		return config.CodeIdentifier{}, false
	}
	cid := config.CodeIdentifier{Package: pkg, Method: f.Name()}
	if recv := f.Signature.Recv(); recv != nil {
		cid.Receiver = typeName(recv.Type())
	}
	return cid, true
}

// packagePath returns the path of the package of f. Generic instantiations and wrappers have no package; their origin
// object does.
func packagePath(f *ssa.Function) string {
	if f.Pkg != nil {
		return f.Pkg.Pkg.Path()
	}
	if obj, ok := f.Object().(*types.Func); ok && obj.Pkg() != nil {
		return obj.Pkg().Path()
	}
	return ""
}

// typeName returns the name of the named type t, or of the type t points to
func typeName(t types.Type) string {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return ""
}
