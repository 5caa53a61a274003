package shipping

import "strings"

// 追跡APIに渡すキャリアの正規化コード。固定の閉集合。
type CourierCode string

const (
	CourierJNE      CourierCode = "jne"
	CourierPOS      CourierCode = "pos"
	CourierTIKI     CourierCode = "tiki"
	CourierJNT      CourierCode = "jnt"
	CourierSiCepat  CourierCode = "sicepat"
	CourierAnteraja CourierCode = "anteraja"
	CourierWahana   CourierCode = "wahana"
	CourierLion     CourierCode = "lion"
	CourierNinja    CourierCode = "ninja"
	CourierSAP      CourierCode = "sap"
	CourierJET      CourierCode = "jet"
	CourierREX      CourierCode = "rex"
)

// CourierCodes は受け付けるコードの一覧（エラーメッセージにも使う）。
var CourierCodes = []CourierCode{
	CourierJNE, CourierPOS, CourierTIKI, CourierJNT,
	CourierSiCepat, CourierAnteraja, CourierWahana, CourierLion,
	CourierNinja, CourierSAP, CourierJET, CourierREX,
}

var courierLabels = map[CourierCode]string{
	CourierJNE:      "JNE",
	CourierPOS:      "POS Indonesia",
	CourierTIKI:     "TIKI",
	CourierJNT:      "J&T Express",
	CourierSiCepat:  "SiCepat",
	CourierAnteraja: "Anteraja",
	CourierWahana:   "Wahana Prestasi Logistik",
	CourierLion:     "Lion Parcel",
	CourierNinja:    "Ninja Xpress",
	CourierSAP:      "SAP Express",
	CourierJET:      "JET Express",
	CourierREX:      "RPX / REX",
}

// ラベル中に現れるキーワード → コード。
// 「jne」を最後に置くのは "J&T" などより先にマッチさせないため。
var courierKeywords = []struct {
	keyword string
	code    CourierCode
}{
	{"j&t", CourierJNT},
	{"pos", CourierPOS},
	{"sicepat", CourierSiCepat},
	{"anteraja", CourierAnteraja},
	{"wahana", CourierWahana},
	{"lion", CourierLion},
	{"ninja", CourierNinja},
	{"sap", CourierSAP},
	{"jet", CourierJET},
	{"rpx", CourierREX},
	{"rex", CourierREX},
	{"jne", CourierJNE},
	{"tiki", CourierTIKI},
}

// Label はコードの表示名を返す。
func (c CourierCode) Label() string {
	return courierLabels[c]
}

// IsKnownCourierCode は既知コードそのものか。
func IsKnownCourierCode(s string) bool {
	_, ok := courierLabels[CourierCode(strings.ToLower(strings.TrimSpace(s)))]
	return ok
}

// NormalizeCourier は自由入力（コード or 表示ラベル）をコードに正規化する。
// 不明ならfalse。推測で曖昧に割り当てることはしない。
func NormalizeCourier(input string) (CourierCode, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}

	//すでにコードならそのまま
	if _, ok := courierLabels[CourierCode(s)]; ok {
		return CourierCode(s), true
	}

	for _, kw := range courierKeywords {
		if strings.Contains(s, kw.keyword) {
			return kw.code, true
		}
	}

	return "", false
}
