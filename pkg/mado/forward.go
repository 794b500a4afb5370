package mado

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/module"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/identity"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/report"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// ToBundle converts a Key Object Selection dataset with a deterministic mapper
func ToBundle(ds *dicom.Dataset) (*r4.Bundle, error) {
	return New().ToBundle(ds)
}

// ToBundle converts a Key Object Selection dataset into a document bundle
func (m *Mapper) ToBundle(ds *dicom.Dataset) (*r4.Bundle, error) {
	c, err := m.Convert(ds)
	if err != nil {
		return nil, err
	}
	return c.Bundle, nil
}

// Convert extracts the manifest from ds and maps it, keeping the mapping notes
func (m *Mapper) Convert(ds *dicom.Dataset) (*Conversion, error) {
	man, err := kos.Extract(ds)
	if err != nil {
		return nil, err
	}
	return m.ConvertManifest(man), nil
}

// refs are the bundle-local identities of one conversion
type refs struct {
	bundle       string
	composition  string
	patient      string
	study        string
	device       string
	practitioner string
}

func (m *Mapper) identities(meta kos.Metadata) refs {
	sop := opt.Of(meta.SOPInstanceUID)
	return refs{
		bundle:       m.ids.ID(identity.Bundle, sop),
		composition:  m.ids.ID(identity.Composition, sop),
		patient:      m.ids.ID(identity.Patient, meta.PatientID, meta.IssuerOfPatientID),
		study:        m.ids.IDOf(identity.ImagingStudy, meta.StudyInstanceUID),
		device:       m.ids.ID(identity.Device, meta.Manufacturer, sop),
		practitioner: m.ids.ID(identity.Practitioner, meta.ReferringPhysicianName),
	}
}

// ConvertManifest maps an extracted manifest. Resources are ordered Composition,
// Patient, Device, Practitioner, Endpoints, ImagingStudy, selections.
func (m *Mapper) ConvertManifest(man *kos.Manifest) *Conversion {
	notes := report.New()
	meta := man.Meta
	ids := m.identities(meta)
	date := meta.ContentDateTime()
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
		notes.Infof(report.CodeDefaulted, "", "no content date and time; document dated %s", date)
	}

	patient := patientResource(meta, ids.patient)
	device := m.deviceResource(meta, ids.device, notes)

	var practitioner *r4.Practitioner
	if !meta.ReferringPhysicianName.IsPlaceholder() {
		practitioner = &r4.Practitioner{
			Id:   fhir.Ptr(ids.practitioner),
			Name: []r4.HumanName{humanName(meta.ReferringPhysicianName.String())},
		}
	}

	endpoints, endpointRefs := m.endpointResources(man.Evidence)
	study := m.studyResource(man, ids, endpointRefs, practitioner != nil, notes)
	selections := m.selectionResources(man, ids, date)
	composition := compositionResource(man, ids, date, selections)

	b := &r4.Bundle{
		Id:         fhir.Ptr(ids.bundle),
		Identifier: &r4.Identifier{System: fhir.Ptr(SystemURI), Value: fhir.Ptr(identity.URN(ids.bundle))},
		Type:       fhir.Ptr(r4.BundleTypeDocument),
		Timestamp:  fhir.Ptr(date),
	}
	fhir.Add(b, composition)
	fhir.Add(b, patient)
	fhir.Add(b, device)
	if practitioner != nil {
		fhir.Add(b, practitioner)
	}
	for _, ep := range endpoints {
		fhir.Add(b, ep)
	}
	fhir.Add(b, study)
	for _, sel := range selections {
		fhir.Add(b, sel)
	}

	m.log.Debug("converted manifest to bundle",
		slog.String("sop_instance_uid", meta.SOPInstanceUID),
		slog.Int("resources", len(b.Entry)),
		slog.Int("selections", len(selections)),
		slog.Bool("deterministic", m.ids.IsDeterministic()))
	return &Conversion{Bundle: b, Notes: notes}
}

func compositionResource(man *kos.Manifest, ids refs, date string, selections []*r4.Basic) *r4.Composition {
	meta := man.Meta
	title := meta.Title
	if title.Value == "" {
		title = sr.Manifest
	}

	exts := fhir.Extensions{
		preserve(ExtKeyObjectDescription, man.KeyObjectDescription()),
		preserve(ExtContentDate, meta.ContentDate),
		preserve(ExtContentTime, meta.ContentTime),
		preserve(ExtTimezoneOffset, meta.TimezoneOffset),
		preserve(ExtSeriesDate, meta.SeriesDate),
		preserve(ExtSeriesTime, meta.SeriesTime),
		preserve(ExtSeriesDescription, meta.SeriesDescription),
	}
	exts = appendString(exts, ExtManifestSeriesUID, meta.SeriesInstanceUID)
	exts = appendInt(exts, ExtManifestSeriesNumber, meta.SeriesNumber)
	exts = appendInt(exts, ExtManifestInstanceNumber, meta.InstanceNumber)
	if man.Root != nil {
		for _, mod := range man.Root.ChildrenNamed(sr.DocumentTitleModifier) {
			if c, ok := mod.Code(); ok {
				cd := coding(c)
				exts = append(exts, r4.Extension{Url: ExtTitleModifier, ValueCoding: &cd})
			}
		}
	}

	entries := []r4.Reference{fhir.Ref("ImagingStudy", ids.study)}
	for _, sel := range selections {
		entries = append(entries, fhir.Ref("Basic", fhir.Val(sel.Id)))
	}
	titleCoding := coding(title)

	return &r4.Composition{
		Id:         fhir.Ptr(ids.composition),
		Extension:  exts,
		Identifier: &r4.Identifier{System: fhir.Ptr(SystemDICOMUID), Value: fhir.Str(oidURN(meta.SOPInstanceUID))},
		Status:     fhir.Ptr(r4.CompositionStatusFinal),
		Type:       r4.CodeableConcept{Coding: []r4.Coding{manifestDocumentType, titleCoding}, Text: fhir.Str(title.Meaning)},
		Subject:    fhir.RefPtr("Patient", ids.patient),
		Date:       fhir.Ptr(date),
		Author:     []r4.Reference{fhir.Ref("Device", ids.device)},
		Title:      fhir.Ptr(title.Meaning),
		Section: []r4.CompositionSection{{
			Title: fhir.Str(title.Meaning),
			Code:  &r4.CodeableConcept{Coding: []r4.Coding{titleCoding}},
			Entry: entries,
		}},
	}
}

func patientResource(meta kos.Metadata, id string) *r4.Patient {
	p := &r4.Patient{
		Id:     fhir.Ptr(id),
		Gender: gender(meta.PatientSex),
	}
	if meta.PatientID.IsPresent() {
		p.Identifier = []r4.Identifier{issuedIdentifier(meta.PatientID.String(), meta.IssuerOfPatientID)}
	}
	if meta.PatientName.IsPresent() {
		p.Name = []r4.HumanName{humanName(meta.PatientName.String())}
	}
	if d, err := module.ParseDate(meta.PatientBirthDate.String()); err == nil {
		p.BirthDate = fhir.Str(d.ISO())
	}
	p.Extension = fhir.Extensions{
		preserve(ExtPatientID, meta.PatientID),
		preserve(ExtIssuerOfPatientID, meta.IssuerOfPatientID),
		preserve(ExtTypeOfPatientID, meta.TypeOfPatientID),
		preserve(ExtPatientName, meta.PatientName),
		preserve(ExtPatientBirthDate, meta.PatientBirthDate),
		preserve(ExtPatientSex, meta.PatientSex),
	}
	return p
}

// issuedIdentifier places an OID issuer in the system and any other issuer in the assigner
func issuedIdentifier(value string, issuer opt.Text) r4.Identifier {
	id := r4.Identifier{Value: fhir.Str(value)}
	if !issuer.IsPresent() {
		return id
	}
	if module.IsOID(issuer.String()) {
		id.System = fhir.Str(oidURN(issuer.String()))
	} else {
		id.Assigner = &r4.Reference{Display: fhir.Str(issuer.String())}
	}
	return id
}

// identifierIssuer is the inverse of issuedIdentifier
func identifierIssuer(id *r4.Identifier) opt.Text {
	if id == nil {
		return opt.Unset()
	}
	if system := fhir.Val(id.System); strings.HasPrefix(system, "urn:oid:") {
		return opt.Of(fromOIDURN(system))
	}
	if id.Assigner != nil {
		return textOf(fhir.Val(id.Assigner.Display))
	}
	return opt.Unset()
}

func humanName(pn string) r4.HumanName {
	p := module.ParsePersonName(pn)
	name := r4.HumanName{Text: fhir.Str(pn), Family: fhir.Str(p.FamilyName)}
	for _, g := range []string{p.GivenName, p.MiddleName} {
		if g != "" {
			name.Given = append(name.Given, g)
		}
	}
	if p.Prefix != "" {
		name.Prefix = []string{p.Prefix}
	}
	if p.Suffix != "" {
		name.Suffix = []string{p.Suffix}
	}
	return name
}

func gender(sex opt.Text) *r4.AdministrativeGender {
	if !sex.IsPresent() {
		return nil
	}
	g := r4.AdministrativeGenderUnknown
	switch strings.ToUpper(sex.String()) {
	case "M":
		g = r4.AdministrativeGenderMale
	case "F":
		g = r4.AdministrativeGenderFemale
	case "O":
		g = r4.AdministrativeGenderOther
	}
	return &g
}

func (m *Mapper) deviceResource(meta kos.Metadata, id string, notes *report.Result) *r4.Device {
	d := &r4.Device{
		Id:           fhir.Ptr(id),
		Status:       fhir.Ptr(r4.FHIRDeviceStatusActive),
		Manufacturer: fhir.Ptr(meta.Manufacturer.Or(m.manufacturer)),
		Version:      []r4.DeviceVersion{{Value: fhir.Ptr(meta.SoftwareVersions.Or(m.softwareVersion))}},
		Owner:        &r4.Reference{Display: fhir.Ptr(meta.InstitutionName.Or(m.institution))},
	}
	if meta.ManufacturerModel.IsPresent() {
		model := meta.ManufacturerModel.String()
		d.ModelNumber = fhir.Ptr(model)
		d.DeviceName = []r4.DeviceDeviceName{{Name: fhir.Ptr(model), Type: fhir.Ptr(r4.DeviceNameTypeModelName)}}
	}
	for _, f := range []struct {
		name  string
		value opt.Text
		def   string
	}{
		{"manufacturer", meta.Manufacturer, m.manufacturer},
		{"software version", meta.SoftwareVersions, m.softwareVersion},
		{"institution", meta.InstitutionName, m.institution},
	} {
		if !f.value.IsPresent() {
			notes.Infof(report.CodeDefaulted, "Device", "no %s recorded; using %q", f.name, f.def)
		}
	}
	d.Extension = fhir.Extensions{
		preserve(ExtManufacturer, meta.Manufacturer),
		preserve(ExtManufacturerModel, meta.ManufacturerModel),
		preserve(ExtSoftwareVersions, meta.SoftwareVersions),
		preserve(ExtInstitutionName, meta.InstitutionName),
	}
	return d
}

// endpointBase is the retrieval URL up to the /studies/ segment
func endpointBase(url string) string {
	if i := strings.Index(url, "/studies/"); i >= 0 {
		return url[:i]
	}
	return strings.TrimRight(url, "/")
}

// endpointResources returns one Endpoint per distinct base URL, in order of first
// appearance, and the reference of each base
func (m *Mapper) endpointResources(ev kos.Evidence) ([]*r4.Endpoint, map[string]string) {
	var endpoints []*r4.Endpoint
	byBase := map[string]string{}
	for _, study := range ev.Studies {
		for _, series := range study.Series {
			if series.RetrieveURL == "" {
				continue
			}
			base := endpointBase(series.RetrieveURL)
			if _, ok := byBase[base]; ok {
				continue
			}
			id := m.ids.IDOf(identity.Endpoint, base)
			byBase[base] = identity.URN(id)
			endpoints = append(endpoints, &r4.Endpoint{
				Id:              fhir.Ptr(id),
				Status:          fhir.Ptr(r4.EndpointStatusActive),
				ConnectionType:  fhir.NewCoding(SystemConnection, "dicom-wado-rs", "DICOM WADO-RS"),
				Name:            fhir.Ptr("WADO-RS " + base),
				PayloadType:     []r4.CodeableConcept{{Text: fhir.Ptr("DICOM")}},
				PayloadMimeType: []string{"application/dicom"},
				Address:         fhir.Ptr(base),
			})
		}
	}
	return endpoints, byBase
}

func accessionIdentifier(accession, issuer opt.Text) *r4.Identifier {
	if !accession.IsPresent() {
		return nil
	}
	id := issuedIdentifier(accession.String(), issuer)
	id.Type = &r4.CodeableConcept{Coding: []r4.Coding{fhir.NewCoding(SystemV2ID, "ACSN", "")}}
	return &id
}

func (m *Mapper) studyResource(man *kos.Manifest, ids refs, endpoints map[string]string, referrer bool, notes *report.Result) *r4.ImagingStudy {
	meta := man.Meta
	lib := indexLibrary(man.Root, man.Evidence)

	s := &r4.ImagingStudy{
		Id:          fhir.Ptr(ids.study),
		Identifier:  []r4.Identifier{{System: fhir.Ptr(SystemDICOMUID), Value: fhir.Str(oidURN(meta.StudyInstanceUID))}},
		Status:      fhir.Ptr(r4.ImagingStudyStatusAvailable),
		Subject:     fhir.Ref("Patient", ids.patient),
		Started:     fhir.Str(meta.StudyDateTime()),
		Description: fhir.Str(meta.StudyDescription.String()),
	}
	if acc := accessionIdentifier(meta.AccessionNumber, meta.IssuerOfAccessionNumber); acc != nil {
		s.Identifier = append(s.Identifier, *acc)
	}
	if referrer {
		s.Referrer = fhir.RefPtr("Practitioner", ids.practitioner)
	}
	for _, req := range meta.Requests {
		s.BasedOn = append(s.BasedOn, requestReference(req))
	}
	s.Extension = []r4.Extension{
		preserve(ExtStudyID, meta.StudyID),
		preserve(ExtStudyDate, meta.StudyDate),
		preserve(ExtStudyTime, meta.StudyTime),
		preserve(ExtStudyDescription, meta.StudyDescription),
		preserve(ExtAccessionNumber, meta.AccessionNumber),
		preserve(ExtIssuerOfAccessionNumber, meta.IssuerOfAccessionNumber),
		preserve(ExtReferringPhysicianName, meta.ReferringPhysicianName),
	}

	var bodySite *r4.Coding
	if meta.TargetRegion != nil {
		c := coding(ToSCT(*meta.TargetRegion))
		bodySite = &c
	}

	seenEndpoint := map[string]bool{}
	seenModality := map[string]bool{}
	instances := 0
	for _, study := range man.Evidence.Studies {
		for _, es := range study.Series {
			series := m.seriesEntry(study, es, meta.StudyInstanceUID, lib, notes)
			series.BodySite = bodySite
			if es.RetrieveURL != "" {
				ref := endpoints[endpointBase(es.RetrieveURL)]
				series.Endpoint = []r4.Reference{{Reference: fhir.Ptr(ref), Type: fhir.Ptr("Endpoint")}}
				if !seenEndpoint[ref] {
					seenEndpoint[ref] = true
					s.Endpoint = append(s.Endpoint, series.Endpoint[0])
				}
			}
			if code := fhir.Val(series.Modality.Code); code != "" && !seenModality[code] {
				seenModality[code] = true
				s.Modality = append(s.Modality, series.Modality)
			}
			instances += len(series.Instance)
			s.Series = append(s.Series, series)
		}
	}
	s.NumberOfSeries = fhir.Count(len(s.Series))
	s.NumberOfInstances = fhir.Count(instances)
	return s
}

func requestReference(req kos.Request) r4.Reference {
	ref := r4.Reference{
		Type:       fhir.Ptr("ServiceRequest"),
		Identifier: accessionIdentifier(req.AccessionNumber, req.IssuerOfAccessionNumber),
		Display:    fhir.Str(req.RequestedProcedureDescription.String()),
	}
	ref.Extension = appendString(nil, ExtRequestStudyInstanceUID, req.StudyInstanceUID)
	ref.Extension = append(ref.Extension,
		preserve(ExtAccessionNumber, req.AccessionNumber),
		preserve(ExtIssuerOfAccessionNumber, req.IssuerOfAccessionNumber),
		preserve(ExtRequestedProcedureID, req.RequestedProcedureID),
		preserve(ExtRequestedProcedureDescription, req.RequestedProcedureDescription),
		preserve(ExtPlacerOrderNumber, req.PlacerOrderNumber),
		preserve(ExtFillerOrderNumber, req.FillerOrderNumber),
	)
	return ref
}

// seriesEntry maps one evidence series. Library entries are authoritative for
// instance numbers and frame counts, evidence values come next, and instances
// known to neither are numbered by position with a warning.
func (m *Mapper) seriesEntry(study *kos.EvidenceStudy, es *kos.EvidenceSeries, primaryStudy string, lib library, notes *report.Result) r4.ImagingStudySeries {
	info := lib.series[es.SeriesInstanceUID]
	modality := modalityCode(es.Modality)
	if info.modality != nil && (modality.Value == "" || info.modality.Value == modality.Value) {
		modality = *info.modality
	}
	series := r4.ImagingStudySeries{
		Uid:               fhir.Ptr(es.SeriesInstanceUID),
		Number:            fhir.Count(info.number),
		Modality:          coding(modality),
		Description:       fhir.Str(info.description.String()),
		NumberOfInstances: fhir.Count(len(es.Instances)),
	}
	if study.StudyInstanceUID != primaryStudy {
		series.Extension = appendString(series.Extension, ExtStudyInstanceUID, study.StudyInstanceUID)
	}
	series.Extension = appendString(series.Extension, ExtRetrieveURL, es.RetrieveURL)
	series.Extension = appendString(series.Extension, ExtRetrieveAETitle, es.RetrieveAETitle)
	series.Extension = appendString(series.Extension, ExtRetrieveLocationUID, es.RetrieveLocationUID)

	sequential := 0
	for i, inst := range es.Instances {
		entry, listed := lib.instances[inst.SOPInstanceUID]
		number := entry.number
		if number <= 0 {
			number = inst.InstanceNumber
		}
		if number <= 0 {
			number = i + 1
			sequential++
		}
		frames := inst.NumberOfFrames
		if listed && entry.frames > 0 {
			frames = entry.frames
		}

		fi := r4.ImagingStudySeriesInstance{
			Uid:      fhir.Ptr(inst.SOPInstanceUID),
			SopClass: fhir.NewCoding(SystemURI, oidURN(inst.SOPClassUID), sopClassDisplay(inst.SOPClassUID)),
			Number:   fhir.Count(number),
		}
		fi.Extension = appendInt(fi.Extension, ExtRows, inst.Rows)
		fi.Extension = appendInt(fi.Extension, ExtColumns, inst.Columns)
		fi.Extension = appendInt(fi.Extension, ExtNumberOfFrames, frames)
		fi.Extension = appendString(fi.Extension, ExtDimensions, dimensions(inst.Rows, inst.Columns, frames))
		series.Instance = append(series.Instance, fi)
	}
	if sequential > 0 {
		notes.Warnf(report.CodeNumbering, "ImagingStudy.series["+es.SeriesInstanceUID+"]",
			"%d of %d instance(s) have no instance number in the image library or evidence; numbered by position",
			sequential, len(es.Instances))
		m.log.Warn("instances numbered by position",
			slog.String("series_instance_uid", es.SeriesInstanceUID),
			slog.Int("count", sequential))
	}
	return series
}

// selected is one instance of a key image designation with the modifiers of its item
type selected struct {
	ref       sr.SOPRef
	modifiers []sr.Code
}

type selectionGroup struct {
	code    sr.Code
	entries []selected
}

// keyImages groups the key image designations of the tree by exact code triple,
// in order of first appearance
func keyImages(root *sr.Node) []*selectionGroup {
	if root == nil {
		return nil
	}
	var groups []*selectionGroup
	byKey := map[sr.Code]*selectionGroup{}
	root.Walk(func(n *sr.Node, _ string, _ int) bool {
		if n.ValueType != sr.Image || n.ConceptName == nil || !sr.KeyImageDesignations.Contains(*n.ConceptName) {
			return true
		}
		g, ok := byKey[*n.ConceptName]
		if !ok {
			g = &selectionGroup{code: *n.ConceptName}
			byKey[*n.ConceptName] = g
			groups = append(groups, g)
		}
		var modifiers []sr.Code
		for _, mod := range n.ChildrenNamed(sr.DocumentTitleModifier) {
			if c, ok := mod.Code(); ok {
				modifiers = append(modifiers, c)
			}
		}
		for _, ref := range n.References {
			g.entries = append(g.entries, selected{ref: ref, modifiers: modifiers})
		}
		return false
	})
	return groups
}

func (m *Mapper) selectionResources(man *kos.Manifest, ids refs, date string) []*r4.Basic {
	studyUID := man.Meta.StudyInstanceUID
	var out []*r4.Basic
	for _, g := range keyImages(man.Root) {
		if len(g.entries) == 0 {
			continue
		}
		id := m.ids.IDOf(identity.Selection, studyUID, g.entries[0].ref.InstanceUID, g.code.Scheme, g.code.Value)
		exts := []r4.Extension{{
			Url:            ExtImagingStudy,
			ValueReference: fhir.RefPtr("ImagingStudy", ids.study),
		}}
		for _, e := range g.entries {
			exts = append(exts, selectedExtension(e))
		}
		out = append(out, &r4.Basic{
			Id:        fhir.Ptr(id),
			Extension: exts,
			Code:      r4.CodeableConcept{Coding: []r4.Coding{coding(g.code)}, Text: fhir.Str(g.code.Meaning)},
			Subject:   fhir.RefPtr("Patient", ids.patient),
			Created:   fhir.Ptr(date),
			Author:    fhir.RefPtr("Device", ids.device),
		})
	}
	return out
}

func selectedExtension(e selected) r4.Extension {
	subs := []r4.Extension{
		{Url: subSOPInstanceUID, ValueOid: fhir.Ptr(oidURN(e.ref.InstanceUID))},
	}
	if e.ref.ClassUID != "" {
		subs = append(subs, r4.Extension{Url: subSOPClassUID, ValueOid: fhir.Ptr(oidURN(e.ref.ClassUID))})
	}
	if len(e.ref.Frames) > 0 {
		subs = append(subs, fhir.StringExtension(subFrames, formatFrames(e.ref.Frames)))
	}
	for _, mod := range e.modifiers {
		c := coding(mod)
		subs = append(subs, r4.Extension{Url: subModifier, ValueCoding: &c})
	}
	return r4.Extension{Url: ExtSelectedInstance, Extension: subs}
}

func (c *Conversion) String() string {
	return fmt.Sprintf("%d resource(s); %s", len(c.Bundle.Entry), c.Notes.Summary())
}
