// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import "errors"

// ErrGenerationExhausted is returned when an episode still fails schema
// validation after the final repair attempt. Callers match it with
// errors.Is to distinguish "the model could not produce a valid episode"
// from infrastructure failures.
var ErrGenerationExhausted = errors.New("episode generation failed after maximum validation attempts")
