package mado

import "github.com/jpfielding/mado.go/pkg/sr"

type regionPair struct {
	srt sr.Code
	sct sr.Code
}

func region(srt, sct, meaning string) regionPair {
	return regionPair{
		srt: sr.Code{Value: srt, Scheme: sr.SchemeSRT, Meaning: meaning},
		sct: sr.Code{Value: sct, Scheme: sr.SchemeSCT, Meaning: meaning},
	}
}

var regionPairs = []regionPair{
	region("T-D0010", "38266002", "Entire body"),
	region("T-D1100", "69536005", "Head"),
	region("T-A0100", "12738006", "Brain"),
	region("T-D1600", "45048000", "Neck"),
	region("T-D3000", "51185008", "Chest"),
	region("T-28000", "39607008", "Lung"),
	region("T-32000", "80891009", "Heart"),
	region("T-04000", "76752008", "Breast"),
	region("T-D4000", "113345001", "Abdomen"),
	region("T-62000", "10200004", "Liver"),
	region("T-71000", "64033007", "Kidney"),
	region("T-D6000", "12921003", "Pelvis"),
	region("T-11500", "421060004", "Spine"),
	region("T-15750", "72696002", "Knee"),
	region("T-45010", "69105007", "Carotid Artery"),
}

var (
	srtToSCT = map[string]sr.Code{}
	sctToSRT = map[string]sr.Code{}
)

func init() {
	for _, p := range regionPairs {
		srtToSCT[p.srt.Value] = p.sct
		sctToSRT[p.sct.Value] = p.srt
	}
}

// ToSCT translates a legacy SRT region code to SNOMED CT. Codes in any other
// scheme, or without a table entry, pass through unchanged.
func ToSCT(c sr.Code) sr.Code {
	if c.Scheme != sr.SchemeSRT {
		return c
	}
	if sct, ok := srtToSCT[c.Value]; ok {
		if c.Meaning != "" {
			sct.Meaning = c.Meaning
		}
		return sct
	}
	return c
}

// ToSRT translates a SNOMED CT region code back to SRT, passing through codes
// without a table entry
func ToSRT(c sr.Code) sr.Code {
	if c.Scheme != sr.SchemeSCT {
		return c
	}
	if srt, ok := sctToSRT[c.Value]; ok {
		if c.Meaning != "" {
			srt.Meaning = c.Meaning
		}
		return srt
	}
	return c
}
