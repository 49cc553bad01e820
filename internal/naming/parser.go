// Package naming реализует разбор имён входных файлов заказов.
//
// Ожидаемая форма имени: <owner-id>_<color-token>_<binding-token>_<sequence>.
// Токены цвета и переплёта допускают множество вариантов написания,
// накопленных за годы эксплуатации; всё, что не входит в закрытые
// таблицы соответствий, отклоняется без угадывания.
package naming

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// ErrMalformedName возвращается, если имя файла не соответствует форме
// owner_color_binding_sequence.
var (
	ErrMalformedName = errors.New("malformed file name")
	// ErrUnknownColorToken возвращается при нераспознанном токене цвета.
	ErrUnknownColorToken = errors.New("unknown color token")
	// ErrUnknownBindingToken возвращается при нераспознанном токене переплёта.
	ErrUnknownBindingToken = errors.New("unknown binding token")
	// ErrInvalidOwnerID возвращается, если идентификатор владельца не
	// соответствует форме учётной записи справочной службы.
	ErrInvalidOwnerID = errors.New("invalid owner id")
)

var (
	ownerIDPattern  = regexp.MustCompile(`^[a-z]{3}[0-9]{5}$`)
	sequencePattern = regexp.MustCompile(`^[0-9]{3}$`)
)

// Варианты написания, встречавшиеся во входных файлах. Таблицы закрыты:
// новые варианты добавляются сюда, а не угадываются эвристикой.
var colorVariants = map[string]model.ColorMode{}

var bindingVariants = map[string]model.BindingMode{}

var monoSpellings = []string{
	"sw", "schwarzweiß", "schwarzweiss", "schwarz-weiß", "schwarz-weiss",
	"schwarz - weiss", "s_and_w", "schwarz-weis", "schwarz weiß",
	"schwarz weiss", "schwarz weis", "schwarz - weiß",
	"schwartzweiß", "schwartzweiss", "schwartz-weiß", "schwartz-weiss",
	"schwarz - weis", "schwartz-weis", "schwartz weiß", "schwartz weiss",
	"schwartz weis", "schwartz - weis",
}

var colorSpellings = []string{"farbig", "farbe", "color"}

var boundSpellings = []string{
	"mb", "mit bindung", "mitbindung", "mit_bindung", "m.bindung",
	"binden", "mit_bdg", "gerringt", "mit bidung", "mitbidung",
	"mit_bidung", "m.bidung", "mitbund", "mit bund", "mit_brindung",
	"bindung", "gebunden",
}

var unboundSpellings = []string{
	"ob", "ohne bindung", "ohnebindung", "ohne_bindung", "ungebunden",
	"o.bindung", "ohne bidung", "ohnebidung", "ohne_bidung", "o.bidung",
}

var folderSpellings = []string{"sh", "schnellhefter"}

func init() {
	for _, s := range monoSpellings {
		colorVariants[Normalize(s)] = model.ColorMono
	}
	for _, s := range colorSpellings {
		colorVariants[Normalize(s)] = model.ColorColor
	}
	for _, s := range boundSpellings {
		bindingVariants[Normalize(s)] = model.BindingBound
	}
	for _, s := range unboundSpellings {
		bindingVariants[Normalize(s)] = model.BindingNone
	}
	for _, s := range folderSpellings {
		bindingVariants[Normalize(s)] = model.BindingFolder
	}
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize приводит токен к канонической форме для поиска в таблицах:
// нижний регистр, ß → ss, удаление диакритики.
func Normalize(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	token = strings.ReplaceAll(token, "ß", "ss")
	folded, _, err := transform.String(foldTransformer, token)
	if err != nil {
		return token
	}
	return folded
}

// Parse разбирает имя файла (с расширением .pdf или без) в OrderRequest.
// Разбор чистый: одно и то же имя всегда даёт один и тот же результат.
func Parse(filename, sourcePath string) (model.OrderRequest, error) {
	base := filename
	// Расширение снимается без учёта регистра, как и при обнаружении файлов.
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = base[:len(base)-len(ext)]
	}

	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return model.OrderRequest{}, ErrMalformedName
	}

	owner := strings.ToLower(parts[0])
	sequence := parts[len(parts)-1]
	middle := parts[1 : len(parts)-1]

	if !ownerIDPattern.MatchString(owner) {
		return model.OrderRequest{}, ErrInvalidOwnerID
	}
	if !sequencePattern.MatchString(sequence) {
		return model.OrderRequest{}, ErrMalformedName
	}

	color, binding, err := splitModeTokens(middle)
	if err != nil {
		return model.OrderRequest{}, err
	}

	return model.OrderRequest{
		OwnerID:    owner,
		Color:      color,
		Binding:    binding,
		Sequence:   sequence,
		SourcePath: sourcePath,
	}, nil
}

// splitModeTokens ищет границу между токеном цвета и токеном переплёта.
// Варианты вроде "s_and_w" или "mit_bindung" сами содержат подчёркивания,
// поэтому перебираются все точки разреза средней части имени.
func splitModeTokens(middle []string) (model.ColorMode, model.BindingMode, error) {
	if len(middle) < 2 {
		// Хотя бы по одной части на цвет и переплёт.
		if len(middle) == 1 {
			if _, ok := colorVariants[Normalize(middle[0])]; ok {
				return "", "", ErrUnknownBindingToken
			}
			return "", "", ErrUnknownColorToken
		}
		return "", "", ErrMalformedName
	}

	colorSeen := false
	for i := 1; i < len(middle); i++ {
		colorTok := Normalize(strings.Join(middle[:i], "_"))
		color, ok := colorVariants[colorTok]
		if !ok {
			continue
		}
		colorSeen = true

		bindingTok := Normalize(strings.Join(middle[i:], "_"))
		if binding, ok := bindingVariants[bindingTok]; ok {
			return color, binding, nil
		}
	}

	if colorSeen {
		return "", "", ErrUnknownBindingToken
	}
	return "", "", ErrUnknownColorToken
}

// CanonicalColorToken возвращает каноническое написание токена цвета.
func CanonicalColorToken(c model.ColorMode) string {
	if c == model.ColorColor {
		return "farbig"
	}
	return "sw"
}

// CanonicalBindingToken возвращает каноническое написание токена переплёта.
func CanonicalBindingToken(b model.BindingMode) string {
	switch b {
	case model.BindingNone:
		return "ob"
	case model.BindingFolder:
		return "sh"
	default:
		return "mb"
	}
}
