package mado

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/module"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// ToDataset converts a document bundle with the default mapper
func ToDataset(b *r4.Bundle) (*dicom.Dataset, error) {
	return New().ToDataset(b)
}

// ToDataset rebuilds a Key Object Selection dataset from a document bundle
func (m *Mapper) ToDataset(b *r4.Bundle) (*dicom.Dataset, error) {
	man, err := m.ToManifest(b)
	if err != nil {
		return nil, err
	}
	ds, err := man.Dataset()
	if err != nil {
		return nil, fmt.Errorf("rendering manifest: %w", err)
	}
	return ds, nil
}

// graph holds the resources a reverse mapping reads
type graph struct {
	bundle      *r4.Bundle
	composition *r4.Composition
	patient     *r4.Patient
	study       *r4.ImagingStudy
	device      *r4.Device
	referrer    *r4.Practitioner
	selections  []*r4.Basic
}

// checkBundle enforces the reverse mapping preconditions
func checkBundle(b *r4.Bundle) (*graph, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no bundle", ErrNotDocumentBundle)
	}
	if kind := fhir.Val(b.Type); kind != r4.BundleTypeDocument {
		return nil, fmt.Errorf("%w: type is %q", ErrNotDocumentBundle, kind)
	}
	if len(b.Entry) == 0 {
		return nil, fmt.Errorf("%w: bundle is empty", ErrCompositionNotFirst)
	}
	comp, ok := b.Entry[0].Resource.(*r4.Composition)
	if !ok {
		kind := "nothing"
		if b.Entry[0].Resource != nil {
			kind = b.Entry[0].Resource.GetResourceType()
		}
		return nil, fmt.Errorf("%w: found %s", ErrCompositionNotFirst, kind)
	}
	g := &graph{bundle: b, composition: comp}

	if comp.Subject != nil {
		g.patient, _ = fhir.ResolveAs[*r4.Patient](b, comp.Subject)
	}
	if g.patient == nil {
		if ps := fhir.Of[*r4.Patient](b); len(ps) > 0 {
			g.patient = ps[0]
		}
	}
	if g.patient == nil {
		return nil, ErrMissingPatient
	}

	studies := fhir.Of[*r4.ImagingStudy](b)
	if len(studies) == 0 {
		return nil, ErrMissingImagingStudy
	}
	g.study = studies[0]

	for i := range comp.Author {
		if d, ok := fhir.ResolveAs[*r4.Device](b, &comp.Author[i]); ok {
			g.device = d
			break
		}
	}
	if g.device == nil {
		if ds := fhir.Of[*r4.Device](b); len(ds) > 0 {
			g.device = ds[0]
		}
	}
	if g.study.Referrer != nil {
		g.referrer, _ = fhir.ResolveAs[*r4.Practitioner](b, g.study.Referrer)
	}
	for _, basic := range fhir.Of[*r4.Basic](b) {
		if len(fhir.Extensions(basic.Extension).FindAll(ExtSelectedInstance)) > 0 {
			g.selections = append(g.selections, basic)
		}
	}
	return g, nil
}

// ToManifest rebuilds the manifest a bundle describes, recovering DICOM-only
// attributes from the preservation extensions
func (m *Mapper) ToManifest(b *r4.Bundle) (*kos.Manifest, error) {
	g, err := checkBundle(b)
	if err != nil {
		return nil, err
	}
	meta := g.metadata()
	ev := g.evidence(meta.StudyInstanceUID)
	root := g.content(meta, ev)

	m.log.Debug("rebuilt manifest from bundle",
		slog.String("sop_instance_uid", meta.SOPInstanceUID),
		slog.Int("series", len(g.study.Series)),
		slog.Int("selections", len(g.selections)),
		slog.Int("requests", len(meta.Requests)))
	return &kos.Manifest{Meta: meta, Root: root, Evidence: ev}, nil
}

func (g *graph) metadata() kos.Metadata {
	comp, pat, study := g.composition, g.patient, g.study
	meta := kos.Metadata{
		SOPClassUID: dicom.KeyObjectSelectionStorageUID,
		Title:       sr.Manifest,
	}
	if comp.Identifier != nil {
		meta.SOPInstanceUID = fromOIDURN(fhir.Val(comp.Identifier.Value))
	}
	for _, c := range comp.Type.Coding {
		if fhir.Val(c.System) != SystemLOINC && fhir.Val(c.Code) != "" {
			meta.Title = codeOf(c)
			break
		}
	}

	// content and series timing
	compExt := fhir.Extensions(comp.Extension)
	date, tm, offset := module.SplitDateTime(fhir.Val(comp.Date))
	meta.ContentDate = recoverOr(comp.Extension, ExtContentDate, textOf(date))
	meta.ContentTime = recoverOr(comp.Extension, ExtContentTime, textOf(tm))
	meta.TimezoneOffset = recoverOr(comp.Extension, ExtTimezoneOffset, textOf(offset))
	meta.SeriesDate = recoverOr(comp.Extension, ExtSeriesDate, opt.Unset())
	meta.SeriesTime = recoverOr(comp.Extension, ExtSeriesTime, opt.Unset())
	meta.SeriesDescription = recoverOr(comp.Extension, ExtSeriesDescription, opt.Unset())
	meta.SeriesInstanceUID, _ = compExt.String(ExtManifestSeriesUID)
	if meta.SeriesInstanceUID == "" {
		meta.SeriesInstanceUID = dicom.GenerateUID()
	}
	meta.SeriesNumber, _ = compExt.Integer(ExtManifestSeriesNumber)
	if meta.SeriesNumber == 0 {
		meta.SeriesNumber = 1
	}
	meta.InstanceNumber, _ = compExt.Integer(ExtManifestInstanceNumber)
	if meta.InstanceNumber == 0 {
		meta.InstanceNumber = 1
	}

	// patient
	var patientID r4.Identifier
	if len(pat.Identifier) > 0 {
		patientID = pat.Identifier[0]
	}
	var name, sex, birth opt.Text
	if len(pat.Name) > 0 {
		name = textOf(personName(pat.Name[0]))
	}
	switch fhir.Val(pat.Gender) {
	case r4.AdministrativeGenderMale:
		sex = opt.Of("M")
	case r4.AdministrativeGenderFemale:
		sex = opt.Of("F")
	case r4.AdministrativeGenderOther:
		sex = opt.Of("O")
	}
	if d, err := module.ParseISODate(fhir.Val(pat.BirthDate)); err == nil {
		birth = opt.Of(d.String())
	}
	meta.PatientID = recoverOr(pat.Extension, ExtPatientID, textOf(fhir.Val(patientID.Value)))
	meta.IssuerOfPatientID = recoverOr(pat.Extension, ExtIssuerOfPatientID, identifierIssuer(&patientID))
	meta.TypeOfPatientID = recoverOr(pat.Extension, ExtTypeOfPatientID, opt.Unset())
	meta.PatientName = recoverOr(pat.Extension, ExtPatientName, name)
	meta.PatientBirthDate = recoverOr(pat.Extension, ExtPatientBirthDate, birth)
	meta.PatientSex = recoverOr(pat.Extension, ExtPatientSex, sex)

	// study
	var accession *r4.Identifier
	for i, id := range study.Identifier {
		switch {
		case fhir.Val(id.System) == SystemDICOMUID && meta.StudyInstanceUID == "":
			meta.StudyInstanceUID = fromOIDURN(fhir.Val(id.Value))
		case isAccession(id.Type) && accession == nil:
			accession = &study.Identifier[i]
		}
	}
	var accessionValue opt.Text
	if accession != nil {
		accessionValue = textOf(fhir.Val(accession.Value))
	}
	sDate, sTime, _ := module.SplitDateTime(fhir.Val(study.Started))
	var referrer opt.Text
	if g.referrer != nil && len(g.referrer.Name) > 0 {
		referrer = textOf(personName(g.referrer.Name[0]))
	}
	meta.StudyDate = recoverOr(study.Extension, ExtStudyDate, textOf(sDate))
	meta.StudyTime = recoverOr(study.Extension, ExtStudyTime, textOf(sTime))
	meta.StudyDescription = recoverOr(study.Extension, ExtStudyDescription, textOf(fhir.Val(study.Description)))
	meta.StudyID = recoverOr(study.Extension, ExtStudyID, opt.Unset())
	meta.AccessionNumber = recoverOr(study.Extension, ExtAccessionNumber, accessionValue)
	meta.IssuerOfAccessionNumber = recoverOr(study.Extension, ExtIssuerOfAccessionNumber, identifierIssuer(accession))
	meta.ReferringPhysicianName = recoverOr(study.Extension, ExtReferringPhysicianName, referrer)
	for _, ref := range study.BasedOn {
		meta.Requests = append(meta.Requests, request(ref, meta.StudyInstanceUID))
	}
	if len(study.Series) > 0 && study.Series[0].BodySite != nil {
		region := ToSRT(codeOf(*study.Series[0].BodySite))
		meta.TargetRegion = &region
	}

	// equipment
	if d := g.device; d != nil {
		var model, software, institution opt.Text
		model = textOf(fhir.Val(d.ModelNumber))
		if len(d.Version) > 0 {
			software = textOf(fhir.Val(d.Version[0].Value))
		}
		if d.Owner != nil {
			institution = textOf(fhir.Val(d.Owner.Display))
		}
		meta.Manufacturer = recoverOr(d.Extension, ExtManufacturer, textOf(fhir.Val(d.Manufacturer)))
		meta.ManufacturerModel = recoverOr(d.Extension, ExtManufacturerModel, model)
		meta.SoftwareVersions = recoverOr(d.Extension, ExtSoftwareVersions, software)
		meta.InstitutionName = recoverOr(d.Extension, ExtInstitutionName, institution)
	}
	return meta
}

func isAccession(cc *r4.CodeableConcept) bool {
	c, ok := fhir.FindCoding(cc, SystemV2ID)
	return ok && fhir.Val(c.Code) == "ACSN"
}

// request rebuilds one Referenced Request Sequence entry from a basedOn reference
func request(ref r4.Reference, studyUID string) kos.Request {
	var accession opt.Text
	if ref.Identifier != nil {
		accession = textOf(fhir.Val(ref.Identifier.Value))
	}
	req := kos.Request{
		StudyInstanceUID:              studyUID,
		AccessionNumber:               recoverOr(ref.Extension, ExtAccessionNumber, accession),
		IssuerOfAccessionNumber:       recoverOr(ref.Extension, ExtIssuerOfAccessionNumber, identifierIssuer(ref.Identifier)),
		RequestedProcedureID:          recoverOr(ref.Extension, ExtRequestedProcedureID, opt.Unset()),
		RequestedProcedureDescription: recoverOr(ref.Extension, ExtRequestedProcedureDescription, textOf(fhir.Val(ref.Display))),
		PlacerOrderNumber:             recoverOr(ref.Extension, ExtPlacerOrderNumber, opt.Unset()),
		FillerOrderNumber:             recoverOr(ref.Extension, ExtFillerOrderNumber, opt.Unset()),
	}
	if uid, ok := fhir.Extensions(ref.Extension).String(ExtRequestStudyInstanceUID); ok && uid != "" {
		req.StudyInstanceUID = uid
	}
	return req
}

// personName renders a HumanName as a PN value, preferring the original text
func personName(n r4.HumanName) string {
	text := fhir.Val(n.Text)
	if strings.Contains(text, "^") {
		return text
	}
	p := module.PersonName{FamilyName: fhir.Val(n.Family)}
	if len(n.Given) > 0 {
		p.GivenName = n.Given[0]
	}
	if len(n.Given) > 1 {
		p.MiddleName = strings.Join(n.Given[1:], " ")
	}
	if len(n.Prefix) > 0 {
		p.Prefix = n.Prefix[0]
	}
	if len(n.Suffix) > 0 {
		p.Suffix = n.Suffix[0]
	}
	if p.IsEmpty() {
		return text
	}
	return p.String()
}

// evidence rebuilds the hierarchy from the ImagingStudy series, grouping series
// that name another study under that study
func (g *graph) evidence(primary string) kos.Evidence {
	var ev kos.Evidence
	byStudy := map[string]*kos.EvidenceStudy{}
	for _, s := range g.study.Series {
		studyUID := primary
		exts := fhir.Extensions(s.Extension)
		seriesUID := fhir.Val(s.Uid)
		if uid, ok := exts.String(ExtStudyInstanceUID); ok && uid != "" {
			studyUID = uid
		}
		study, ok := byStudy[studyUID]
		if !ok {
			study = &kos.EvidenceStudy{StudyInstanceUID: studyUID}
			byStudy[studyUID] = study
			ev.Studies = append(ev.Studies, study)
		}

		series := &kos.EvidenceSeries{
			SeriesInstanceUID: seriesUID,
			Modality:          fhir.Val(s.Modality.Code),
		}
		series.RetrieveURL, _ = exts.String(ExtRetrieveURL)
		series.RetrieveAETitle, _ = exts.String(ExtRetrieveAETitle)
		series.RetrieveLocationUID, _ = exts.String(ExtRetrieveLocationUID)
		if series.RetrieveURL == "" && len(s.Endpoint) > 0 {
			if ep, ok := fhir.ResolveAs[*r4.Endpoint](g.bundle, &s.Endpoint[0]); ok && fhir.Val(ep.Address) != "" {
				series.RetrieveURL = strings.TrimRight(*ep.Address, "/") + "/studies/" + studyUID + "/series/" + seriesUID
			}
		}

		for _, inst := range s.Instance {
			ei := &kos.EvidenceInstance{
				SOPClassUID:    fromOIDURN(fhir.Val(inst.SopClass.Code)),
				SOPInstanceUID: fhir.Val(inst.Uid),
				InstanceNumber: int(fhir.Val(inst.Number)),
			}
			instExt := fhir.Extensions(inst.Extension)
			ei.Rows, _ = instExt.Integer(ExtRows)
			ei.Columns, _ = instExt.Integer(ExtColumns)
			ei.NumberOfFrames, _ = instExt.Integer(ExtNumberOfFrames)
			if compact, ok := instExt.String(ExtDimensions); ok {
				rows, cols, frames := parseDimensions(compact)
				if ei.Rows == 0 {
					ei.Rows = rows
				}
				if ei.Columns == 0 {
					ei.Columns = cols
				}
				if ei.NumberOfFrames == 0 {
					ei.NumberOfFrames = frames
				}
			}
			series.Instances = append(series.Instances, ei)
		}
		study.Series = append(study.Series, series)
	}
	return ev
}

// content rebuilds a TID 2010 tree: the description, the study acquisition
// context, the target region, the image library with one group per series, the
// key image selections and finally the document title modifiers
func (g *graph) content(meta kos.Metadata, ev kos.Evidence) *sr.Node {
	comp := g.composition
	root := sr.NewContainer("", meta.Title)

	kod := sr.NewText(sr.Contains, sr.KeyObjectDescription, "")
	kod.TextValue = recoverOr(comp.Extension, ExtKeyObjectDescription, opt.Empty())
	if !kod.TextValue.IsSet() {
		kod.TextValue = opt.Empty()
	}
	root.Add(kod)

	if meta.StudyInstanceUID != "" {
		root.Add(sr.NewUIDRef(sr.HasAcqContext, sr.StudyInstanceUID, meta.StudyInstanceUID))
	}
	if len(g.study.Series) > 0 {
		root.Add(sr.NewCode(sr.HasAcqContext, sr.Modality, libraryModality(g.study.Series[0].Modality)))
	}

	if meta.TargetRegion != nil {
		root.Add(sr.NewCode(sr.Contains, sr.TargetRegion, *meta.TargetRegion))
	}

	if len(g.study.Series) > 0 {
		lib := sr.NewContainer(sr.Contains, sr.ImageLibrary)
		for _, s := range g.study.Series {
			lib.Add(libraryGroup(s, ev))
		}
		root.Add(lib)
	}

	for _, basic := range g.selections {
		first, ok := fhir.FirstCoding(&basic.Code)
		if !ok {
			continue
		}
		designation := codeOf(first)
		for _, x := range fhir.Extensions(basic.Extension).FindAll(ExtSelectedInstance) {
			root.Add(keyImage(designation, x))
		}
	}

	for _, x := range fhir.Extensions(comp.Extension).FindAll(ExtTitleModifier) {
		if x.ValueCoding != nil {
			root.Add(sr.NewCode(sr.HasConceptMod, sr.DocumentTitleModifier, codeOf(*x.ValueCoding)))
		}
	}
	return root
}

// libraryModality fills in the scheme and meaning a bare modality coding lacks
func libraryModality(c r4.Coding) sr.Code {
	modality := codeOf(c)
	if modality.Scheme == "" {
		modality.Scheme = sr.SchemeDCM
	}
	if modality.Meaning == "" {
		modality.Meaning = modalityCode(modality.Value).Meaning
	}
	return modality
}

func libraryGroup(s r4.ImagingStudySeries, ev kos.Evidence) *sr.Node {
	group := sr.NewContainer(sr.Contains, sr.ImageLibraryGroup,
		sr.NewCode(sr.HasAcqContext, sr.Modality, libraryModality(s.Modality)),
		sr.NewUIDRef(sr.HasAcqContext, sr.SeriesInstanceUID, fhir.Val(s.Uid)),
	)
	if desc := fhir.Val(s.Description); desc != "" {
		group.Add(sr.NewText(sr.HasAcqContext, sr.SeriesDescription, desc))
	}
	if s.Number != nil {
		group.Add(sr.NewNum(sr.HasAcqContext, sr.SeriesNumber, strconv.FormatUint(uint64(*s.Number), 10), sr.NoUnits))
	}
	for _, inst := range s.Instance {
		uid := fhir.Val(inst.Uid)
		img := sr.NewImage(sr.Contains, nil, sr.SOPRef{ClassUID: fromOIDURN(fhir.Val(inst.SopClass.Code)), InstanceUID: uid})
		if inst.Number != nil {
			img.Add(sr.NewNum(sr.HasAcqContext, sr.InstanceNumber, strconv.FormatUint(uint64(*inst.Number), 10), sr.NoUnits))
		}
		if loc, ok := ev.Find(uid); ok && loc.Instance.NumberOfFrames > 0 {
			img.Add(sr.NewNum(sr.HasAcqContext, sr.NumberOfFrames, strconv.Itoa(loc.Instance.NumberOfFrames), sr.NoUnits))
		}
		group.Add(img)
	}
	return group
}

// keyImage rebuilds one key image designation from a selected-instance extension
func keyImage(designation sr.Code, x r4.Extension) *sr.Node {
	var ref sr.SOPRef
	var modifiers []*sr.Node
	for _, sub := range x.Extension {
		switch sub.Url {
		case subSOPInstanceUID:
			ref.InstanceUID = fromOIDURN(fhir.Val(sub.ValueOid))
		case subSOPClassUID:
			ref.ClassUID = fromOIDURN(fhir.Val(sub.ValueOid))
		case subFrames:
			ref.Frames = parseFrames(fhir.Val(sub.ValueString))
		case subModifier:
			if sub.ValueCoding != nil {
				modifiers = append(modifiers, sr.NewCode(sr.HasConceptMod, sr.DocumentTitleModifier, codeOf(*sub.ValueCoding)))
			}
		}
	}
	return sr.NewImage(sr.Contains, &designation, ref).Add(modifiers...)
}
