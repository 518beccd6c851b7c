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

// This file holds the engine's fixed video prompt text: the composer that
// assembles a scene's final Veo prompt from its description, dialogue, and
// the global policy text, plus the canned prompts for the feedback and idle
// clips of interactive scenes. The feedback and idle prompts are engine
// policy rather than configuration: their spoken lines are the contract the
// interaction layer plays back against, so they live in code.
package commands

import (
	"fmt"
	"strings"

	"github.com/toonlabs/episode-engine/internal/cloud"
)

// feedbackGlobalRules is prepended to both feedback prompts. It anchors the
// clip to the reference frame and pins the narrator voice so the feedback
// does not sound like a different character than the scene it follows.
const feedbackGlobalRules = "Create a short reaction clip that continues seamlessly from the provided reference frame. " +
	"The character should deliver feedback naturally and clearly. " +
	"Use facial expressions, body language, and simple sound effects to convey emotion. " +
	"Keep the same character design, camera framing, and lighting as the reference frame. " +
	"\n\n" +
	"CRITICAL VOICE REQUIREMENTS - MUST FOLLOW EXACTLY:\n" +
	"- Voice MUST be the EXACT SAME voice as the main scene\n" +
	"- Voice quality: FRIENDLY, CHEERFUL, WARM, and INVITING\n" +
	"- Voice clarity: CLEAR, SMOOTH, CLEAN audio - NO raspy quality, NO distortion, NO weird artifacts\n" +
	"- Voice tone: NATURAL speaking voice - NO singing, NO musical delivery, NO pitch variations\n" +
	"- Voice consistency: The SAME character narrator voice across ALL clips - main scene, correct feedback, incorrect feedback\n" +
	"- Audio production: High-quality, professional children's narrator voice - like a friendly teacher or storyteller\n" +
	"- NO robotic quality, NO mechanical sound, NO voice effects, NO filters\n" +
	"- The voice should sound like ONE consistent, friendly character throughout the entire episode"

// FeedbackCorrectPrompt is the full Veo prompt for the clip played when the
// learner answers correctly. The spoken line is fixed.
const FeedbackCorrectPrompt = feedbackGlobalRules + "\n\n" +
	"Emotion: joyful + proud. \n" +
	"Spoken line: 'Awesome job! You got that spot on!' \n" +
	"VOICE QUALITY: MUST use the EXACT SAME friendly, cheerful, smooth, clear narrator voice from the main scene. \n" +
	"- Voice should be warm and encouraging but NOT overly excited or strained\n" +
	"- NO raspy quality, NO distortion, NO weird vocal effects\n" +
	"- Clean, professional children's narrator voice - friendly and natural\n" +
	"- NO singing tone, NO musical delivery, just natural cheerful speaking\n" +
	"Action during the line: big smile, bright eyes, subtle celebratory gesture (small fist pump or nod). \n" +
	"Audio: light upbeat success sound effect (e.g., sparkle/chime) under the expressions, no more talking."

// FeedbackIncorrectPrompt is the full Veo prompt for the clip played when
// the learner answers incorrectly. Gentle, never punishing.
const FeedbackIncorrectPrompt = feedbackGlobalRules + "\n\n" +
	"Emotion: gentle disappointment but encouraging. \n" +
	"Spoken line: 'Oh no, that's not right. Maybe you should try again!' \n" +
	"VOICE QUALITY: MUST use the EXACT SAME friendly, cheerful, smooth, clear narrator voice from the main scene. \n" +
	"- Voice should be gentle and supportive, NOT harsh or critical\n" +
	"- NO raspy quality, NO distortion, NO weird vocal effects\n" +
	"- Clean, professional children's narrator voice - kind and reassuring\n" +
	"- NO singing tone, NO musical delivery, just natural gentle speaking\n" +
	"- Maintain the SAME voice character as the main scene and correct feedback\n" +
	"Action during the line: concerned face, small head tilt, soft sigh, then reassuring smile at the end. \n" +
	"Audio: soft 'oops' style sound effect under the expressions, no more talking."

// IdlePrompt is the full Veo prompt for the silent loop shown while the
// engine waits for the learner's answer.
const IdlePrompt = "Create a very short looping idle animation that continues seamlessly from the provided reference frame. " +
	"The character should NOT speak any words and should not make any explicit vocal sounds or exclamations. " +
	"There must be no visible mouth movements that look like speech and no captions or text. " +
	"Show subtle idle motions only: gentle breathing, small head and body shifts, occasional blink or soft smile, tiny weight shifts. " +
	"Keep the same character design, camera framing, lighting, and color style as the reference frame. The camera must remain completely static with NO camera movement, pans, zooms, or cuts. " +
	"There should be no background music or sound effects; the clip should be completely silent except for the visual motion. " +
	"The scene should feel like the character is silently and patiently waiting for the viewer's response."

// idleNegativeAppend is added to the baseline negative prompt for idle
// clips. It is the feedback-clip silence suffix plus "dialogue", because an
// idle loop must not even mouth words.
const idleNegativeAppend = "speech, talking, narration, dialogue, words, mouth movements forming words, subtitles, captions, text overlays"

// BuildScenePrompt composes the final Veo prompt for a main scene clip:
// the scene's visual description, the global animation style rules, the
// spoken dialogue when present, and the global voice delivery rules.
func BuildScenePrompt(scenePrompt string, dialogue string, policy cloud.PolicyPrompts) string {
	parts := []string{scenePrompt}
	parts = append(parts, fmt.Sprintf("Global style rules: %s", policy.GlobalStyle))
	if dialogue != "" {
		parts = append(parts, fmt.Sprintf("Spoken dialogue: \"%s\"", dialogue))
	}
	parts = append(parts, fmt.Sprintf("Voice style rules: %s", policy.GlobalVoice))
	return strings.Join(parts, "\n")
}

// FeedbackNegativePrompt returns the negative prompt for feedback clips:
// the baseline policy plus the configured silence terms, because the only
// speech in a feedback clip is its fixed spoken line.
func FeedbackNegativePrompt(policy cloud.PolicyPrompts) string {
	return fmt.Sprintf("%s, %s", policy.NegativePrompt, policy.SilenceSuffix)
}

// IdleNegativePrompt returns the negative prompt for idle clips.
func IdleNegativePrompt(policy cloud.PolicyPrompts) string {
	return fmt.Sprintf("%s, %s", policy.NegativePrompt, idleNegativeAppend)
}
