/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package classify

import "regexp"

func mustPatterns(pairs ...string) []namedPattern {
	out := make([]namedPattern, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, namedPattern{Name: pairs[i], RE: regexp.MustCompile(pairs[i+1])})
	}
	return out
}

// nonDialoguePatterns are anchored at the start of the trimmed line.
var nonDialoguePatterns = mustPatterns(
	"fade-in", `^FADE IN`,
	"fade-out", `^FADE OUT`,
	"cut-to", `^CUT TO`,
	"interior", `^INT\.`,
	"exterior", `^EXT\.`,
	"dissolve-to", `^DISSOLVE TO`,
	"sfx", `^SFX`,
	"jingle", `^JINGLE`,
	"music", `^MUSIC`,
	"parenthetical", `^\(.*?\)$`,
	"rule", `^-{3,}`,
	"asterisk", `^\*`,
	"revised", `^REVISED`,
	"final", `^FINAL`,
	"table-draft", `^TABLE DRAFT`,
	"delivery", `^DELIVERY`,
	"draft", `^DRAFT`,
	"scene-number", `^Scene \d+`,
	"page-number", `^PAGE \d+`,
	"scene-misspelt", `^Sce+ne? \d+`,
	"seene", `^Seene $`,
	"date", `^\d+/\d+/\d+`,
)

// metadataPatterns may match anywhere in the line.
var metadataPatterns = mustPatterns(
	"revised-draft", `(?i)REVISED.*?DRAFT`,
	"final-draft", `(?i)FINAL.*?DRAFT`,
	"table-draft", `(?i)TABLE.*?DRAFT`,
	"delivery-draft", `(?i)DELIVERY.*?DRAFT`,
	"draft", `(?i)^DRAFT\b`,
	"scene-number", `(?i)Scene \d+`,
	"page-number", `(?i)PAGE \d+`,
	"date", `\d+/\d+/\d+`,
	"revision-word", `(?i)^(REVISED|FINAL|TABLE|DELIVERY)\b`,
)

// scenePatterns are searched anywhere in a cue name.
var scenePatterns = mustPatterns(
	"interior", `^INT\.`,
	"exterior", `^EXT\.`,
	"close-up", `^CLOSE UP`,
	"closeup", `^CLOSEUP`,
	"close-up-hyphen", `^CLOSE-UP`,
	"montage", `^MONTAGE$`,
	"new-angle", `^NEW ANGLE$`,
	"on-couch", `^ON COUCH$`,
	"on-tv", `^ON TV$`,
	"stage", `^STAGE$`,
	"back-to", `^BACK TO`,
	"the-simpsons", `^THE SIMPSONS$`,
	"pov", `P\.O\.V\.`,
	"time-continuous", `- CONTINUOUS$`,
	"time-morning", `- MORNING$`,
	"time-night", `- NIGHT$`,
	"time-day", `- DAY$`,
	"time-later", `- LATER$`,
	"act-break", `^ACT (ONE|TWO|THREE|FOUR)`,
	"on", `^ON `,
	"wide-shot", `^WIDE SHOT`,
	"long-shot", `^LONG SHOT`,
	"camera", `^CAMERA `,
	"pull-back", `^PULL BACK`,
	"pull-in", `^PULL IN`,
	"cut-wide", `^CUT WIDE`,
	"reverse-angle", `^REVERSE ANGLE`,
	"freeze-frame", `^FREEZE FRAME`,
	"ripple-dissolve", `^RIPPLE DISSOLVE`,
	"dissolve-back", `^DISSOLVE BACK`,
	"slow-motion", `^SLOW MOTION`,
	"training-montage", `^TRAINING MONTAGE`,
	"by", `^BY$`,
	"behind", `^BEHIND `,
	"entrance-to", `^ENTRANCE TO`,
	"in-another", `^IN ANOTHER`,
	"we-cut", `^WE CUT`,
	"during-the-following", `^DURING THE FOLLOWING$`,
)

// episodeTitles are matched exactly against a whole cue name or header line.
var episodeTitles = []string{
	"BART THE GENIUS",
	"HOMER'S ODYSSEY",
	"SOME ENCHANTED EVENING",
	"THERE'S NO DISGRACE LIKE HOME",
	"MOANING LISA",
	"SIMPSONS ROASTING ON AN OPEN FIRE",
	"THE CALL OF THE SIMPSONS",
	"HOMER'S NIGHT OUT",
	"BART THE GENERAL",
	"THE TELLTALE HEAD",
	"LIFE ON THE FAST LANE",
	"KRUSTY GETS BUSTED",
	"THE CREPES OF WRATH",
	"TWO CARS IN EVERY GARAGE AND THREE EYES ON EVERY FISH",
	"SIMPSON ANND DELILAH",
	"BART GETS AN F",
	"TREEHOUSE OF HORROR",
	"DANCIN' HOMER",
	"BART THE DAREDEVIL",
	"BART VS. THANKSGIVING",
	"DEAD PUTTING SOCIETY",
	"ITCHY & SCRATCHY & MARGE",
	"BART GETS HIT BY A CAR",
	"STARK RAVING DAD",
	"BART THE MURDERER",
	"LIKE FATHER, LIKE CLOWN",
	"LISA'S PONY",
	"BURNS VERKAUFEN DER KRAFTWERK",
	"RADIO BART",
	"HOMER ALONE",
	"SEPARATE VOCATIONS",
	"A STREETCAR NAMED MARGE",
	"BART'S FRIEND FALLS IN LOVE",
	"BROTHER, CAN YOU SPARE TWO DIMES",
	"TREEHOUSE OF HORROR III",
	"NEW KID ON THE BLOCK",
	"MR. PLOW",
	"HOMER'S TRIPLE BYPASS",
	"I LOVE LISA",
	"LAST EXIT TO SPRINGFIELD",
	"WHACKING DAY",
	"KRUSTY GETS KANCELLED",
	"HOMER'S BARBERSHOP QUARTET",
	"LISA VS. MALIBU STACY",
	"SWEET SEYMOUR SKINNER'S BAADASSSSS SONG",
	"HOMER BADMAN",
	"WHO SHOT MR. BURNS? (PART ONE)",
	"WHO SHOT MR. BURNS? (PART TWO)",
	"HOME SWEET HOMEDIDDLY-DUM-DOODILY",
	"VIVA NED FLANDERS",
	"MAYORED TO THE MOB",
	"TRASH OF THE TITANS",
	"TREEHOUSE OF HORROR VI",
	"BART SELLS HIS SOUL",
	"THE LAST TEMPTATION OF KRUST",
	"HOMER THE SMITHERS",
	"MARGE GETS A JOB",
	"SELMA'S CHOICE",
	"MARGE IN CHAINS",
	"22 SHORT FILMS ABOUT SPRINGFIELD",
}

var episodeTitlePatterns = func() []namedPattern {
	out := make([]namedPattern, 0, len(episodeTitles))
	for _, t := range episodeTitles {
		out = append(out, namedPattern{Name: t, RE: regexp.MustCompile(`^` + regexp.QuoteMeta(t) + `$`)})
	}
	return out
}()

// EpisodeTitles returns a copy of the known episode title list.
func EpisodeTitles() []string {
	return append([]string(nil), episodeTitles...)
}
