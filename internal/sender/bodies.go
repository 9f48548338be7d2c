package sender

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// smsBodies holds the per-language SMS message templates, keyed by the
// index of the matching tag in supportedLanguages. The %s verb receives the
// verification code.
var smsBodies = []string{
	"Your verification code is %s. Do not share this code.",          // en
	"Tu código de verificación es %s. No compartas este código.",     // es
	"Votre code de vérification est %s. Ne partagez pas ce code.",    // fr
	"Dein Bestätigungscode lautet %s. Teile diesen Code mit niemandem.", // de
	"Seu código de verificação é %s. Não compartilhe este código.",   // pt
}

// voiceScripts holds the per-language voice call scripts. Digits are spaced
// out so text-to-speech reads them individually.
var voiceScripts = []string{
	"Your verification code is: %s. Again, your code is: %s.",
	"Tu código de verificación es: %s. Repito, tu código es: %s.",
	"Votre code de vérification est : %s. Je répète, votre code est : %s.",
	"Dein Bestätigungscode lautet: %s. Noch einmal, dein Code lautet: %s.",
	"Seu código de verificação é: %s. Repetindo, seu código é: %s.",
}

var supportedLanguages = []language.Tag{
	language.English, // first entry is the fallback
	language.Spanish,
	language.French,
	language.German,
	language.Portuguese,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// BodyProvider renders verification message bodies for provided-code
// senders, picking the best-matching supported language for the caller's
// accept-language preferences.
type BodyProvider struct {
	// androidAppHash, when non-empty, is appended to SMS bodies for
	// ANDROID_WITH_FCM clients so the SMS retriever API can route the
	// message to the app without an SMS permission.
	androidAppHash string
}

// NewBodyProvider creates a BodyProvider. androidAppHash may be empty when
// no Android client support is configured.
func NewBodyProvider(androidAppHash string) *BodyProvider {
	return &BodyProvider{androidAppHash: androidAppHash}
}

// SupportsLanguage reports whether any of the caller's preferred languages
// can be served. An empty preference list matches the fallback language.
func (b *BodyProvider) SupportsLanguage(languages []language.Tag) bool {
	if len(languages) == 0 {
		return true
	}
	_, _, confidence := languageMatcher.Match(languages...)
	return confidence != language.No
}

// SMSBody renders the SMS message for the given code, client, and language
// preferences.
func (b *BodyProvider) SMSBody(code string, client domain.ClientType, languages []language.Tag) string {
	_, index, _ := languageMatcher.Match(languages...)
	body := fmt.Sprintf(smsBodies[index], code)
	if client == domain.ClientTypeAndroidWithFCM && b.androidAppHash != "" {
		body += "\n\n" + b.androidAppHash
	}
	return body
}

// VoiceScript renders the spoken script for the given code and language
// preferences. The code is spelled digit by digit for text-to-speech.
func (b *BodyProvider) VoiceScript(code string, languages []language.Tag) string {
	_, index, _ := languageMatcher.Match(languages...)
	spelled := spellDigits(code)
	return fmt.Sprintf(voiceScripts[index], spelled, spelled)
}

// spellDigits inserts spaces between the characters of a code so speech
// synthesis reads "1 2 3 4 5 6" instead of "one hundred twenty-three ...".
func spellDigits(code string) string {
	out := make([]byte, 0, len(code)*2)
	for i := 0; i < len(code); i++ {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, code[i])
	}
	return string(out)
}
