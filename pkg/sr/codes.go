package sr

// Coding scheme designators
const (
	SchemeDCM  = "DCM"
	SchemeSRT  = "SRT"
	SchemeSCT  = "SCT"
	SchemeLN   = "LN"
	SchemeUCUM = "UCUM"
	// SchemeLocal designates concept names with no registered DICOM code
	SchemeLocal = "99MADO"
)

func dcm(value, meaning string) Code {
	return Code{Value: value, Scheme: SchemeDCM, Meaning: meaning}
}

// Concept names used by the Key Object Selection template (TID 2010)
var (
	KeyObjectDescription  = dcm("113012", "Key Object Description")
	DocumentTitleModifier = dcm("113011", "Document Title Modifier")
	TargetRegion          = dcm("123014", "Target Region")
)

// Concept names of the image library (TID 1600) and its acquisition context leaves
var (
	ImageLibrary      = dcm("111028", "Image Library")
	ImageLibraryGroup = dcm("126200", "Image Library Group")
	Modality          = dcm("121139", "Modality")
	StudyInstanceUID  = dcm("110180", "Study Instance UID")
	SeriesInstanceUID = dcm("112002", "Series Instance UID")
	SeriesDate        = dcm("111060", "Series Date")
	SeriesTime        = dcm("111061", "Series Time")
	SeriesNumber      = dcm("113607", "Series Number")
	InstanceNumber    = dcm("113609", "Instance Number")
	NumberOfFrames    = dcm("121140", "Number of Frames")
	SeriesDescription = Code{Value: "SERIES_DESC", Scheme: SchemeLocal, Meaning: "Series Description"}
)

// NoUnits is the UCUM unit of dimensionless counts
var NoUnits = Code{Value: "1", Scheme: SchemeUCUM, Meaning: "no units"}

// Key Object Selection document titles (CID 7010)
var (
	OfInterest                      = dcm("113000", "Of Interest")
	RejectedForQualityReasons       = dcm("113001", "Rejected for Quality Reasons")
	ForReferringProvider            = dcm("113002", "For Referring Provider")
	ForSurgery                      = dcm("113003", "For Surgery")
	ForTeaching                     = dcm("113004", "For Teaching")
	ForConference                   = dcm("113005", "For Conference")
	ForTherapy                      = dcm("113006", "For Therapy")
	ForPatient                      = dcm("113007", "For Patient")
	ForPeerReview                   = dcm("113008", "For Peer Review")
	ForResearch                     = dcm("113009", "For Research")
	QualityIssue                    = dcm("113010", "Quality Issue")
	BestInSet                       = dcm("113013", "Best In Set")
	ForPrinting                     = dcm("113018", "For Printing")
	ForReportAttachment             = dcm("113020", "For Report Attachment")
	ForLitigation                   = dcm("113021", "For Litigation")
	Manifest                        = dcm("113030", "Manifest")
	SignedManifest                  = dcm("113031", "Signed Manifest")
	CompleteStudyContent            = dcm("113032", "Complete Study Content")
	SignedCompleteStudyContent      = dcm("113033", "Signed Complete Study Content")
	SignedCompleteAcquisition       = dcm("113035", "Signed Complete Acquisition Content")
	GroupOfFramesForDisplay         = dcm("113036", "Group of Frames for Display")
	RejectedForPatientSafetyReasons = dcm("113037", "Rejected for Patient Safety Reasons")
	IncorrectModalityWorklistEntry  = dcm("113038", "Incorrect Modality Worklist Entry")
	DataRetentionPolicyExpired      = dcm("113039", "Data Retention Policy Expired")
)

// CodeSet is a read-only lookup of codes keyed by scheme and value
type CodeSet struct {
	Name  string
	codes map[string]Code
}

func newCodeSet(name string, codes ...Code) CodeSet {
	m := make(map[string]Code, len(codes))
	for _, c := range codes {
		m[c.Scheme+"|"+c.Value] = c
	}
	return CodeSet{Name: name, codes: m}
}

// Contains reports membership by scheme and value
func (s CodeSet) Contains(c Code) bool {
	_, ok := s.codes[c.Scheme+"|"+c.Value]
	return ok
}

// Lookup returns the registered form of a code
func (s CodeSet) Lookup(scheme, value string) (Code, bool) {
	c, ok := s.codes[scheme+"|"+value]
	return c, ok
}

// Len returns the size of the set
func (s CodeSet) Len() int {
	return len(s.codes)
}

var (
	// DocumentTitles is CID 7010
	DocumentTitles = newCodeSet("CID 7010 Key Object Selection Document Title",
		OfInterest, RejectedForQualityReasons, ForReferringProvider, ForSurgery, ForTeaching,
		ForConference, ForTherapy, ForPatient, ForPeerReview, ForResearch, QualityIssue,
		BestInSet, ForPrinting, ForReportAttachment, ForLitigation, Manifest, SignedManifest,
		CompleteStudyContent, SignedCompleteStudyContent, SignedCompleteAcquisition,
		GroupOfFramesForDisplay, RejectedForPatientSafetyReasons, IncorrectModalityWorklistEntry,
		DataRetentionPolicyExpired)

	// KeyImageDesignations are the CID 7010 titles that designate selected images,
	// excluding the manifest titles
	KeyImageDesignations = newCodeSet("Key Image Designation",
		OfInterest, RejectedForQualityReasons, ForReferringProvider, ForSurgery, ForTeaching,
		ForConference, ForTherapy, ForPatient, ForPeerReview, ForResearch, QualityIssue,
		BestInSet, ForPrinting, ForReportAttachment, ForLitigation, GroupOfFramesForDisplay,
		RejectedForPatientSafetyReasons, IncorrectModalityWorklistEntry, DataRetentionPolicyExpired)

	// QualityModifiers is CID 7011 Rejected for Quality Reasons
	QualityModifiers = newCodeSet("CID 7011 Rejected for Quality Reasons",
		dcm("111207", "Image artifact(s)"),
		dcm("111208", "Grid artifact(s)"),
		dcm("111209", "Positioning"),
		dcm("111210", "Motion blur"),
		dcm("111211", "Under exposed"),
		dcm("111212", "Over exposed"),
		dcm("111213", "No image"),
		dcm("111214", "Detector artifact(s)"),
		dcm("111215", "Artifact(s) other than grid or detector artifact"),
		dcm("111216", "Mechanical failure"),
		dcm("111217", "Electrical failure"),
		dcm("111218", "Software failure"),
		dcm("111219", "Inappropriate image processing"),
		dcm("111220", "Other failure"),
		dcm("111221", "Unknown failure"),
		dcm("113026", "Double exposure"))

	// BestInSetModifiers is CID 7012 Best In Set
	BestInSetModifiers = newCodeSet("CID 7012 Best In Set",
		dcm("113014", "Study"),
		dcm("113015", "Series"),
		dcm("113016", "Performed Procedure Step"),
		dcm("113017", "Stage-View"))
)

// RequiredModifiers returns the modifier code set a title code demands a Document
// Title Modifier from, and false for titles that need none
func RequiredModifiers(title Code) (CodeSet, bool) {
	switch {
	case title.Is(RejectedForQualityReasons), title.Is(QualityIssue):
		return QualityModifiers, true
	case title.Is(BestInSet):
		return BestInSetModifiers, true
	}
	return CodeSet{}, false
}
