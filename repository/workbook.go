package repository

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/utils"
	"github.com/xuri/excelize/v2"
)

// Sheet names inside the directory workbook
const (
	SheetCampaigns   = "campaigns"
	SheetLegislators = "legislators"
	SheetDistricts   = "districts"
)

// Column headers of the campaigns sheet that are not message templates
const (
	colCampaignID         = "id"
	colNumbers            = "numbers"
	colRepIDs             = "repIds"
	colRandomChoice       = "random_choice"
	colVotedWithList      = "voted_with_list"
	colSkipStarConfirm    = "skip_star_confirm"
	colCallHumanCheck     = "call_human_check"
	colTargetSenate       = "target_senate"
	colTargetHouse        = "target_house"
	colTargetHouseFirst   = "target_house_first"
	colOnlyCallOneSenator = "only_call_1_sen"
	colExtraFirstCalls    = "extra_first_calls"
	colExtraLastCalls     = "extra_last_calls"
)

// CampaignColumns is the header row of the campaigns sheet
var CampaignColumns = campaignColumns()

func campaignColumns() []string {
	cols := []string{colCampaignID}
	cols = append(cols, allMessageColumns()...)
	return append(cols,
		colNumbers, colRepIDs, colRandomChoice, colVotedWithList,
		colSkipStarConfirm, colCallHumanCheck,
		colTargetSenate, colTargetHouse, colTargetHouseFirst, colOnlyCallOneSenator,
		colExtraFirstCalls, colExtraLastCalls)
}

// LegislatorColumns is the header row of the legislators sheet
var LegislatorColumns = []string{"bioguide_id", "firstname", "lastname", "phone", "chamber", "state", "district", "in_office"}

// DistrictColumns is the header row of the districts sheet
var DistrictColumns = []string{"zipcode", "state", "house_district"}

func allMessageColumns() []string {
	return []string{
		models.MsgKeyIntro,
		models.MsgKeyIntroConfirm,
		models.MsgKeyAskZip,
		models.MsgKeyInvalidZip,
		models.MsgKeyRepIntro,
		models.MsgKeyRepIntroVotedWith,
		models.MsgKeySpecialCallIntro,
		models.MsgKeyCallBlockIntro,
		models.MsgKeyBetweenThanks,
		models.MsgKeyFinalThanks,
	}
}

// Workbook is the immutable in-memory snapshot of campaigns, legislators and districts
type Workbook struct {
	campaigns   map[string]models.Campaign
	legislators map[string]models.Legislator
	districts   map[string][]models.District
}

// NewWorkbook indexes the given rows, applies default-campaign message inheritance
// and validates every campaign
func NewWorkbook(campaigns []models.Campaign, legislators []models.Legislator, districts []models.District) (*Workbook, error) {
	wb := &Workbook{
		campaigns:   make(map[string]models.Campaign, len(campaigns)),
		legislators: make(map[string]models.Legislator, len(legislators)),
		districts:   make(map[string][]models.District),
	}

	for _, c := range campaigns {
		if _, dup := wb.campaigns[c.ID]; dup {
			return nil, fmt.Errorf("duplicate campaign id %q", c.ID)
		}
		wb.campaigns[c.ID] = *c.Clone()
	}

	if base, ok := wb.campaigns[utils.DefaultCampaignID]; ok {
		for id, c := range wb.campaigns {
			if id == utils.DefaultCampaignID {
				continue
			}
			c.Messages.Inherit(base.Messages)
			wb.campaigns[id] = c
		}
	}

	var errs []string
	for _, id := range sortedKeys(wb.campaigns) {
		if err := wb.campaigns[id].Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid campaigns: %s", strings.Join(errs, "; "))
	}

	for _, l := range legislators {
		if l.BioguideID == "" {
			continue
		}
		wb.legislators[l.BioguideID] = l
	}
	for _, d := range districts {
		wb.districts[d.Zipcode] = append(wb.districts[d.Zipcode], d)
	}

	return wb, nil
}

// LoadWorkbookFile opens an .xlsx file and loads it
func LoadWorkbookFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return LoadWorkbook(f)
}

// LoadWorkbook reads the campaigns, legislators and districts sheets. Columns are
// matched by header name so their order is free.
func LoadWorkbook(r io.Reader) (*Workbook, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer xl.Close()

	campaignRows, err := readSheet(xl, SheetCampaigns)
	if err != nil {
		return nil, err
	}
	legislatorRows, err := readSheet(xl, SheetLegislators)
	if err != nil {
		return nil, err
	}
	districtRows, err := readSheet(xl, SheetDistricts)
	if err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(campaignRows))
	for _, row := range campaignRows {
		c := campaignFromRow(row)
		if c.ID == "" {
			continue
		}
		campaigns = append(campaigns, c)
	}

	legislators := make([]models.Legislator, 0, len(legislatorRows))
	for i, row := range legislatorRows {
		l, err := legislatorFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetLegislators, i+2, err)
		}
		legislators = append(legislators, l)
	}

	districts := make([]models.District, 0, len(districtRows))
	for _, row := range districtRows {
		d := models.District{
			Zipcode:       row["zipcode"],
			State:         strings.ToUpper(row["state"]),
			HouseDistrict: row["house_district"],
		}
		if d.Zipcode == "" {
			continue
		}
		districts = append(districts, d)
	}

	return NewWorkbook(campaigns, legislators, districts)
}

// WriteWorkbook renders rows into a new xlsx document in the layout LoadWorkbook reads
func WriteWorkbook(w io.Writer, campaigns []models.Campaign, legislators []models.Legislator, districts []models.District) error {
	xl := excelize.NewFile()
	defer xl.Close()

	if _, err := xl.NewSheet(SheetCampaigns); err != nil {
		return err
	}
	if err := writeRows(xl, SheetCampaigns, CampaignColumns, len(campaigns), func(i int) []any {
		return campaignToRow(campaigns[i])
	}); err != nil {
		return err
	}

	if _, err := xl.NewSheet(SheetLegislators); err != nil {
		return err
	}
	if err := writeRows(xl, SheetLegislators, LegislatorColumns, len(legislators), func(i int) []any {
		l := legislators[i]
		return []any{l.BioguideID, l.FirstName, l.LastName, l.Phone, string(l.Chamber), l.State, l.District, boolCell(l.InOffice)}
	}); err != nil {
		return err
	}

	if _, err := xl.NewSheet(SheetDistricts); err != nil {
		return err
	}
	if err := writeRows(xl, SheetDistricts, DistrictColumns, len(districts), func(i int) []any {
		d := districts[i]
		return []any{d.Zipcode, d.State, d.HouseDistrict}
	}); err != nil {
		return err
	}

	if err := xl.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to render workbook: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func writeRows(xl *excelize.File, sheet string, header []string, n int, row func(i int) []any) error {
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := xl.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		record := row(i)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return err
		}
	}
	return nil
}

// readSheet returns data rows keyed by trimmed header name
func readSheet(xl *excelize.File, sheet string) ([]map[string]string, error) {
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				empty = false
			}
			m[h] = v
		}
		if !empty {
			out = append(out, m)
		}
	}
	return out, nil
}

func campaignFromRow(row map[string]string) models.Campaign {
	c := models.Campaign{
		ID:                 row[colCampaignID],
		Numbers:            utils.SplitList(row[colNumbers]),
		RepIDs:             utils.SplitList(row[colRepIDs]),
		RandomChoice:       utils.SplitList(row[colRandomChoice]),
		VotedWithList:      utils.SplitList(row[colVotedWithList]),
		SkipStarConfirm:    parseBoolCell(row[colSkipStarConfirm]),
		CallHumanCheck:     parseBoolCell(row[colCallHumanCheck]),
		TargetSenate:       parseBoolCell(row[colTargetSenate]),
		TargetHouse:        parseBoolCell(row[colTargetHouse]),
		TargetHouseFirst:   parseBoolCell(row[colTargetHouseFirst]),
		OnlyCallOneSenator: parseBoolCell(row[colOnlyCallOneSenator]),
		ExtraFirstCalls:    utils.SplitList(row[colExtraFirstCalls]),
		ExtraLastCalls:     utils.SplitList(row[colExtraLastCalls]),
	}
	for _, key := range allMessageColumns() {
		c.Messages.SetByKey(key, row[key])
	}
	return c
}

func campaignToRow(c models.Campaign) []any {
	row := []any{c.ID}
	for _, key := range allMessageColumns() {
		row = append(row, c.Messages.ByKey(key))
	}
	return append(row,
		strings.Join(c.Numbers, "\n"),
		strings.Join(c.RepIDs, "\n"),
		strings.Join(c.RandomChoice, "\n"),
		strings.Join(c.VotedWithList, "\n"),
		boolCell(c.SkipStarConfirm),
		boolCell(c.CallHumanCheck),
		boolCell(c.TargetSenate),
		boolCell(c.TargetHouse),
		boolCell(c.TargetHouseFirst),
		boolCell(c.OnlyCallOneSenator),
		strings.Join(c.ExtraFirstCalls, "\n"),
		strings.Join(c.ExtraLastCalls, "\n"),
	)
}

func legislatorFromRow(row map[string]string) (models.Legislator, error) {
	chamber, ok := models.ParseChamber(row["chamber"])
	if !ok {
		return models.Legislator{}, fmt.Errorf("unknown chamber %q for %s", row["chamber"], row["bioguide_id"])
	}
	inOffice := true
	if v, present := row["in_office"]; present && v != "" {
		inOffice = parseBoolCell(v)
	}
	return models.Legislator{
		BioguideID: row["bioguide_id"],
		FirstName:  row["firstname"],
		LastName:   row["lastname"],
		Phone:      row["phone"],
		Chamber:    chamber,
		State:      strings.ToUpper(row["state"]),
		District:   row["district"],
		InOffice:   inOffice,
	}, nil
}

func parseBoolCell(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "y", "1", "x":
		return true
	default:
		return false
	}
}

func boolCell(b bool) string {
	if b {
		return "true"
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
