package controllers

import (
	"errors"
	"net/http"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/models"
	"github.com/cppla/viewlog/utils"
)

const (
	// NameMaxLen bounds the full name, in characters.
	NameMaxLen        = 64
	affiliationMaxLen = 128
)

var (
	errAffiliationRequired = errors.New("affiliation is required")
	errUnknownAffiliation  = errors.New("affiliation is not in the configured list")
	errAffiliationTooLong  = errors.New("affiliation is too long")
	errNameRequired        = errors.New("name is required")
	errNameTooLong         = errors.New("name is too long")
)

// ViewController records attendance and lists it over the JSON API.
type ViewController struct {
	db  *gorm.DB
	now func() time.Time
}

// NewViewController creates a new ViewController instance.
func NewViewController(db *gorm.DB) *ViewController {
	return &ViewController{db: db, now: time.Now}
}

// Submit stores one attendance record stamped with the current time in the configured zone.
func (v *ViewController) Submit(ctx *gin.Context) {
	affiliation, name, err := validateSubmission(ctx.PostForm("affiliation"), ctx.PostForm("name"), config.Get().Affiliations)
	if err != nil {
		renderError(ctx, http.StatusBadRequest, describeSubmitError(err), "/watch")
		return
	}

	record := models.ViewRecord{
		Timestamp:   v.now().In(config.Location()).Truncate(time.Second),
		Affiliation: affiliation,
		Name:        name,
	}
	if err := v.db.WithContext(ctx.Request.Context()).Create(&record).Error; err != nil {
		utils.Sugar.Errorw("failed to insert view record", "error", err)
		renderError(ctx, http.StatusInternalServerError, "記録に失敗しました。もう一度お試しください。", "/watch")
		return
	}

	utils.ViewsRecorded.Inc()
	utils.Sugar.Infow("view recorded", "id", record.ID, "affiliation", record.Affiliation)
	ctx.Redirect(http.StatusSeeOther, "/submitted")
}

// List returns the records of a date range as JSON.
func (v *ViewController) List(ctx *gin.Context) {
	loc := config.Location()
	r, err := parseDateRange(ctx.Query("start"), ctx.Query("end"), loc)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
		return
	}

	records, err := fetchRecords(ctx.Request.Context(), v.db, r)
	if err != nil {
		utils.Sugar.Errorw("failed to list view records", "error", err)
		utils.RecordReport("json", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to list records")
		return
	}
	utils.RecordReport("json", nil)

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		items = append(items, gin.H{
			"id":          rec.ID,
			"ts":          rec.Timestamp.In(loc).Format(time.RFC3339),
			"affiliation": rec.Affiliation,
			"name":        rec.Name,
		})
	}
	utils.Success(ctx, gin.H{
		"start": r.StartLabel(),
		"end":   r.EndLabel(),
		"total": len(items),
		"items": items,
	})
}

// validateSubmission cleans the form fields and checks them against the allowed affiliations.
// An empty allowed list accepts any affiliation.
func validateSubmission(affiliation, name string, allowed []string) (string, string, error) {
	affiliation = utils.CleanText(affiliation)
	name = utils.CleanText(name)

	if affiliation == "" {
		return "", "", errAffiliationRequired
	}
	if utf8.RuneCountInString(affiliation) > affiliationMaxLen {
		return "", "", errAffiliationTooLong
	}
	if len(allowed) > 0 && !slices.Contains(allowed, affiliation) {
		return "", "", errUnknownAffiliation
	}
	if name == "" {
		return "", "", errNameRequired
	}
	if utf8.RuneCountInString(name) > NameMaxLen {
		return "", "", errNameTooLong
	}
	return affiliation, name, nil
}

func describeSubmitError(err error) string {
	switch {
	case errors.Is(err, errAffiliationRequired), errors.Is(err, errUnknownAffiliation):
		return "所属を一覧から選択してください。"
	case errors.Is(err, errAffiliationTooLong):
		return "所属が長すぎます。"
	case errors.Is(err, errNameRequired):
		return "氏名（フルネーム）を入力してください。"
	case errors.Is(err, errNameTooLong):
		return "氏名が長すぎます。"
	default:
		return err.Error()
	}
}
