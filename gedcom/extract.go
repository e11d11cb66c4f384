package gedcom

import (
	"regexp"
	"strings"

	"github.com/camden-git/familytreebackend/models"
)

// parseContext carries everything one parse call accumulates. A new one is made for
// every call, so concurrent parses never share state.
type parseContext struct {
	opts        Options
	individuals map[string]*Individual
	families    map[string]*Family
	notes       map[string]string
	sources     map[string]string
	media       map[string]string
	issues      []Issue
}

func newParseContext(opts Options) *parseContext {
	return &parseContext{
		opts:        opts,
		individuals: make(map[string]*Individual),
		families:    make(map[string]*Family),
		notes:       make(map[string]string),
		sources:     make(map[string]string),
		media:       make(map[string]string),
	}
}

type (
	recordHandler     func(ctx *parseContext, node *Node)
	individualHandler func(ctx *parseContext, indi *Individual, node *Node)
	familyHandler     func(ctx *parseContext, fam *Family, node *Node)
)

var (
	recordHandlers     = map[string]recordHandler{}
	individualHandlers = map[string]individualHandler{}
	familyHandlers     = map[string]familyHandler{}
)

func registerIndividual(h individualHandler, tags ...string) {
	for _, tag := range tags {
		individualHandlers[tag] = h
	}
}

func registerFamily(h familyHandler, tags ...string) {
	for _, tag := range tags {
		familyHandlers[tag] = h
	}
}

func init() {
	recordHandlers["INDI"] = extractIndividual
	recordHandlers["FAM"] = extractFamily
	recordHandlers["NOTE"] = extractNoteRecord
	recordHandlers["SOUR"] = extractSourceRecord
	recordHandlers["OBJE"] = extractMediaRecord

	registerIndividual(handleName, "NAME")
	registerIndividual(handleSex, "SEX")
	registerIndividual(lifeEvent("birth", func(i *Individual) (*models.LifeDate, *string) { return &i.Birth, &i.BirthPlace }), "BIRT")
	registerIndividual(lifeEvent("death", func(i *Individual) (*models.LifeDate, *string) { return &i.Death, &i.DeathPlace }), "DEAT")
	registerIndividual(lifeEvent("baptism", func(i *Individual) (*models.LifeDate, *string) { return &i.Baptism, &i.BaptismPlace }), "BAPM", "CHR")
	registerIndividual(lifeEvent("burial", func(i *Individual) (*models.LifeDate, *string) { return &i.Burial, &i.BurialPlace }), "BURI")
	registerIndividual(plainEvent("marriage"), "MARR")
	registerIndividual(plainEvent("residence"), "RESI")
	registerIndividual(plainEvent("census"), "CENS")
	registerIndividual(plainEvent("immigration"), "IMMI")
	registerIndividual(plainEvent("emigration"), "EMIG")
	registerIndividual(plainEvent("naturalization"), "NATU")
	registerIndividual(plainEvent("event"), "EVEN")
	registerIndividual(textField(func(i *Individual) *string { return &i.Occupation }), "OCCU")
	registerIndividual(textField(func(i *Individual) *string { return &i.Education }), "EDUC")
	registerIndividual(textField(func(i *Individual) *string { return &i.Religion }), "RELI")
	registerIndividual(textField(func(i *Individual) *string { return &i.Nationality }), "NATI")
	registerIndividual(textField(func(i *Individual) *string { return &i.Title }), "TITL")
	registerIndividual(textField(func(i *Individual) *string { return &i.Email }), "EMAIL", "_EMAIL")
	registerIndividual(handleAddress, "ADDR")
	registerIndividual(handleIndividualNote, "NOTE")
	registerIndividual(handleSource, "SOUR")
	registerIndividual(handleMedia, "OBJE")
	registerIndividual(func(_ *parseContext, i *Individual, n *Node) {
		i.SpouseFamilies = appendUnique(i.SpouseFamilies, strings.TrimSpace(n.Value))
	}, "FAMS")
	registerIndividual(func(_ *parseContext, i *Individual, n *Node) {
		i.ChildFamilies = appendUnique(i.ChildFamilies, strings.TrimSpace(n.Value))
	}, "FAMC")

	registerFamily(func(_ *parseContext, f *Family, n *Node) { f.HusbandXref = strings.TrimSpace(n.Value) }, "HUSB")
	registerFamily(func(_ *parseContext, f *Family, n *Node) { f.WifeXref = strings.TrimSpace(n.Value) }, "WIFE")
	registerFamily(func(_ *parseContext, f *Family, n *Node) {
		if xref := strings.TrimSpace(n.Value); xref != "" && !f.hasChild(xref) {
			f.ChildXrefs = append(f.ChildXrefs, xref)
		}
	}, "CHIL")
	registerFamily(handleMarriage, "MARR")
	registerFamily(func(_ *parseContext, f *Family, _ *Node) { f.Divorced = true }, "DIV", "ANUL")
	registerFamily(func(_ *parseContext, f *Family, n *Node) {
		if text := strings.TrimSpace(n.Text()); text != "" {
			f.Notes = append(f.Notes, text)
		}
	}, "NOTE")
}

// extract walks the level-0 records and dispatches them by tag. Records without an
// xref (HEAD, TRLR) and unknown record types are ignored.
func (ctx *parseContext) extract(records []*Node) {
	for _, record := range records {
		if record.Xref == "" {
			continue
		}
		if handler, ok := recordHandlers[record.Tag]; ok {
			handler(ctx, record)
		}
	}
}

func extractIndividual(ctx *parseContext, node *Node) {
	if _, exists := ctx.individuals[node.Xref]; exists {
		ctx.issues = append(ctx.issues, lineWarning(node.Number, "duplicate individual %s ignored", node.Xref))
		return
	}
	indi := &Individual{Xref: node.Xref, Gender: models.GenderUnknown}
	for _, child := range node.Children {
		if handler, ok := individualHandlers[child.Tag]; ok {
			handler(ctx, indi, child)
		}
	}
	ctx.individuals[node.Xref] = indi
}

func extractFamily(ctx *parseContext, node *Node) {
	if _, exists := ctx.families[node.Xref]; exists {
		ctx.issues = append(ctx.issues, lineWarning(node.Number, "duplicate family %s ignored", node.Xref))
		return
	}
	fam := &Family{Xref: node.Xref}
	for _, child := range node.Children {
		if handler, ok := familyHandlers[child.Tag]; ok {
			handler(ctx, fam, child)
		}
	}
	ctx.families[node.Xref] = fam
}

func extractNoteRecord(ctx *parseContext, node *Node) {
	ctx.notes[node.Xref] = strings.TrimSpace(node.Text())
}

func extractSourceRecord(ctx *parseContext, node *Node) {
	title := node.ChildText("TITL")
	if title == "" {
		title = node.ChildText("ABBR")
	}
	if title == "" {
		title = strings.TrimSpace(node.Text())
	}
	ctx.sources[node.Xref] = title
}

func extractMediaRecord(ctx *parseContext, node *Node) {
	if file := node.ChildValue("FILE"); file != "" {
		ctx.media[node.Xref] = file
	}
}

var nameRegex = regexp.MustCompile(`^\s*([^/]*?)\s*/([^/]*)/\s*(.*?)\s*$`)

// handleName reads the primary NAME. The "Given /Surname/ Suffix" form is matched
// first; explicit sub-fields then override what the pattern produced.
func handleName(_ *parseContext, indi *Individual, node *Node) {
	if indi.nameSeen {
		return
	}
	indi.nameSeen = true

	value := strings.TrimSpace(node.Value)
	if m := nameRegex.FindStringSubmatch(value); m != nil {
		given, surname, suffix := strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), m[3]
		indi.FirstName, indi.MiddleName = splitGiven(given)
		indi.LastName = surname
		indi.Suffix = suffix
		indi.DisplayName = strings.Join(strings.Fields(strings.Join([]string{given, surname, suffix}, " ")), " ")
	} else if words := strings.Fields(value); len(words) > 0 {
		indi.FirstName = words[0]
		if len(words) > 1 {
			indi.LastName = words[len(words)-1]
			indi.MiddleName = strings.Join(words[1:len(words)-1], " ")
		}
		indi.DisplayName = strings.Join(words, " ")
	}

	for _, child := range node.Children {
		v := strings.TrimSpace(child.Value)
		if v == "" {
			continue
		}
		switch child.Tag {
		case "GIVN":
			indi.FirstName, indi.MiddleName = splitGiven(v)
		case "SURN":
			indi.LastName = v
		case "NICK":
			indi.Nickname = v
		case "NPFX":
			indi.Title = v
		case "NSFX":
			indi.Suffix = v
		}
	}
}

func splitGiven(given string) (first, middle string) {
	words := strings.Fields(given)
	if len(words) == 0 {
		return "", ""
	}
	return words[0], strings.Join(words[1:], " ")
}

func handleSex(_ *parseContext, indi *Individual, node *Node) {
	switch strings.ToUpper(strings.TrimSpace(node.Value)) {
	case "M", "MALE":
		indi.Gender = models.GenderMale
	case "F", "FEMALE":
		indi.Gender = models.GenderFemale
	case "X", "O", "OTHER":
		indi.Gender = models.GenderOther
	default:
		indi.Gender = models.GenderUnknown
	}
}

func readEvent(eventType string, node *Node) models.Event {
	if eventType == "event" {
		if t := node.ChildValue("TYPE"); t != "" {
			eventType = strings.ToLower(t)
		}
	}
	event := models.Event{
		Type:  eventType,
		Date:  NormalizeDate(node.ChildValue("DATE")),
		Place: node.ChildText("PLAC"),
		Notes: node.ChildText("NOTE"),
	}
	if event.Place == "" {
		event.Place = node.ChildText("ADDR")
	}
	if event.Notes == "" && node.Tag == "EVEN" {
		event.Notes = strings.TrimSpace(node.Value)
	}
	return event
}

func plainEvent(eventType string) individualHandler {
	return func(_ *parseContext, indi *Individual, node *Node) {
		indi.Events = append(indi.Events, readEvent(eventType, node))
	}
}

// lifeEvent records the event and fills the matching life-date and place. The first
// occurrence of a life event wins.
func lifeEvent(eventType string, fields func(*Individual) (*models.LifeDate, *string)) individualHandler {
	return func(_ *parseContext, indi *Individual, node *Node) {
		event := readEvent(eventType, node)
		indi.Events = append(indi.Events, event)
		if eventType == "death" || eventType == "burial" {
			indi.Deceased = true
		}
		date, place := fields(indi)
		if date.IsZero() {
			*date = event.Date
		}
		if *place == "" {
			*place = event.Place
		}
	}
}

func textField(field func(*Individual) *string) individualHandler {
	return func(_ *parseContext, indi *Individual, node *Node) {
		dst := field(indi)
		if *dst == "" {
			*dst = strings.TrimSpace(node.Text())
		}
	}
}

func handleAddress(_ *parseContext, indi *Individual, node *Node) {
	if indi.Address != "" {
		return
	}
	parts := []string{strings.TrimSpace(node.Text())}
	for _, tag := range []string{"ADR1", "ADR2", "CITY", "STAE", "POST", "CTRY"} {
		parts = append(parts, node.ChildValue(tag))
	}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	indi.Address = strings.Join(kept, ", ")
	if email := node.ChildValue("EMAIL"); email != "" && indi.Email == "" {
		indi.Email = email
	}
}

func handleIndividualNote(_ *parseContext, indi *Individual, node *Node) {
	if node.IsPointer() {
		indi.Notes = append(indi.Notes, strings.TrimSpace(node.Value))
		return
	}
	if text := strings.TrimSpace(node.Text()); text != "" {
		indi.Notes = append(indi.Notes, text)
	}
}

func handleSource(_ *parseContext, indi *Individual, node *Node) {
	citation := strings.TrimSpace(node.Text())
	if page := node.ChildValue("PAGE"); page != "" {
		citation += ", " + page
	}
	if citation != "" {
		indi.Sources = append(indi.Sources, citation)
	}
}

func handleMedia(_ *parseContext, indi *Individual, node *Node) {
	if node.IsPointer() {
		indi.Media = append(indi.Media, strings.TrimSpace(node.Value))
		return
	}
	if file := node.ChildValue("FILE"); file != "" {
		indi.Media = append(indi.Media, file)
	}
}

func handleMarriage(_ *parseContext, fam *Family, node *Node) {
	if !fam.MarriageDate.IsZero() || fam.MarriagePlace != "" {
		return
	}
	fam.MarriageDate = NormalizeDate(node.ChildValue("DATE"))
	fam.MarriagePlace = node.ChildText("PLAC")
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
