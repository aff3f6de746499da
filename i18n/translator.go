package i18n

// Translator retrieves localized description strings for requirement
// codes. data carries optional fragments to embed in the message (for
// example "spec" or "lower"/"upper" bounds).
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "does_not_satisfy":
			return data["spec"] + " を満たしていません"
		case "approx_places":
			return data["spec"] + " と小数 " + data["places"] + " 桁まで一致しません"
		case "approx_delta":
			return data["spec"] + " との差が " + data["delta"] + " を超えています"
		case "fuzzy_match":
			return data["spec"] + " と十分に類似していません (cutoff " + data["cutoff"] + ")"
		case "interval_between":
			return data["lower"] + " から " + data["upper"] + " の範囲にありません"
		case "interval_min":
			return data["lower"] + " 以上ではありません"
		case "interval_max":
			return data["upper"] + " 以下ではありません"
		case "set_membership":
			return "集合のメンバーシップを満たしていません"
		case "subset_membership":
			return "必要なメンバーを含んでいません"
		case "superset_membership":
			return "要求された集合に含まれない要素があります"
		case "unique_elements":
			return "要素が一意ではありません"
		case "required_order":
			return "要求された順序と一致しません"
		case "required_sequence":
			return "要求されたシーケンスと一致しません"
		case "mapping_requirement":
			return "マッピング要件を満たしていません"
		}
	default: // "en"
		switch code {
		case "does_not_satisfy":
			return "does not satisfy " + data["spec"]
		case "approx_places":
			return "not approximately equal to " + data["spec"] + " within " + data["places"] + " decimal places"
		case "approx_delta":
			return "not within " + data["delta"] + " of " + data["spec"]
		case "fuzzy_match":
			return "does not fuzzy-match " + data["spec"] + " with cutoff " + data["cutoff"]
		case "interval_between":
			return "not in the interval from " + data["lower"] + " to " + data["upper"]
		case "interval_min":
			return "not " + data["lower"] + " or greater"
		case "interval_max":
			return "not " + data["upper"] + " or less"
		case "set_membership":
			return "does not satisfy set membership"
		case "subset_membership":
			return "does not contain the required members"
		case "superset_membership":
			return "contains members beyond the required set"
		case "unique_elements":
			return "elements should be unique"
		case "required_order":
			return "does not match required order"
		case "required_sequence":
			return "does not match required sequence"
		case "mapping_requirement":
			return "does not satisfy mapping requirements"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
