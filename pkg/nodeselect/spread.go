// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nodeselect

// evalSpread uses as many nodes as possible (spec section 4.7): low to
// high index within each tier, never stopping early on sufficiency.
func (ctx *EvalContext) evalSpread() error {
	return ctx.runSimpleStrategy("spread", func(ctx *EvalContext, tier weightTier) []int {
		return tier.bitmap.Members()
	}, true)
}
