// Copyright 2025 Coverwire Systems
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


// Package triage contains the local, zero-cost admission stages of the
// pipeline: the heuristic scorer and the admission gate.
//
// The scorer is a pure function over a candidate. It never performs I/O
// and is deterministic given the same ruleset, so a batch can score
// thousands of candidates without touching a provider. The gate turns a
// score into one of three decisions and is the cost-control core of the
// pipeline: items below the floor never reach a provider at all, items
// at or above the auto-approve line skip the validator.
package triage
