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

// evalSerial places single-CPU serial jobs from the high end of the
// index range (spec section 4.7, section 8 scenario 6).
func (ctx *EvalContext) evalSerial() error {
	return ctx.runSimpleStrategy("serial", func(ctx *EvalContext, tier weightTier) []int {
		members := tier.bitmap.Members()
		reversed := make([]int, len(members))
		for i, m := range members {
			reversed[len(members)-1-i] = m
		}
		return reversed
	}, false)
}
