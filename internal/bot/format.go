package bot

import (
	"errors"
	"fmt"
	"strings"

	"registration-bot/internal/apperr"
	"registration-bot/internal/yearstructure"
)

const genericError = "❌ **An error occurred.** Please try again later or contact the event staff for assistance."

func createMessage(req yearstructure.CreateRequest, sum *yearstructure.CreateSummary, err error) string {
	if err != nil {
		return sagaFailure("Setup for "+req.Year, err, func(b *strings.Builder) {
			if sum != nil {
				fmt.Fprintf(b, "**Created before the failure:** %d roles, %d categories, %d channels\n",
					sum.RolesCreated, sum.CategoriesCreated, sum.ChannelsCreated)
			}
			fmt.Fprintf(b, "Nothing was rolled back. Run `/createnewyear %s` again to finish; existing roles and channels are reused.", req.Year)
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Successfully set up the %s event structure!\n\n", req.Year)
	b.WriteString("**Created:**\n")
	fmt.Fprintf(&b, "- %d roles\n- %d categories\n- %d channels\n\n", sum.RolesCreated, sum.CategoriesCreated, sum.ChannelsCreated)
	if sum.Archived != nil {
		fmt.Fprintf(&b, "**Archived:**\n- %s event structure (%d categories, %d channels)\n\n",
			sum.Archived.Year, sum.Archived.CategoriesArchived, sum.Archived.ChannelsArchived)
	}
	for _, s := range sum.Steps {
		if s.Status == yearstructure.StatusSkipped && s.Note != yearstructure.NoteNotRequested {
			fmt.Fprintf(&b, "_Skipped %s: %s_\n\n", s.Step, s.Note)
		}
	}
	b.WriteString("**Next Steps:**\n")
	b.WriteString("1. Update your registration system for the new year\n")
	b.WriteString("2. Configure email templates with verification codes\n")
	b.WriteString("3. Test the verification process")
	return b.String()
}

func archiveMessage(year string, sum *yearstructure.ArchiveSummary, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Archived the %s event structure: %d categories and %d channels are now read-only.",
			year, sum.CategoriesArchived, sum.ChannelsArchived)
	case apperr.IsKind(err, apperr.KindNotFound):
		return fmt.Sprintf("❌ No %s categories were found to archive.", year)
	case apperr.IsKind(err, apperr.KindValidation):
		return "❌ Please provide a valid 4-digit year (e.g., 2025)."
	}
	return sagaFailure("Archive of "+year, err, func(b *strings.Builder) {
		if sum != nil {
			fmt.Fprintf(b, "**Archived before the failure:** %d categories, %d channels\n", sum.CategoriesArchived, sum.ChannelsArchived)
		}
		b.WriteString("Nothing was rolled back.")
	})
}

// sagaFailure names the failed step for admins. Remote detail is reduced to
// the service and status; bodies stay in the server log.
func sagaFailure(what string, err error, extra func(*strings.Builder)) string {
	var b strings.Builder
	var pf *apperr.PartialFailureError
	if errors.As(err, &pf) {
		fmt.Fprintf(&b, "❌ %s stopped at step **%s**: %s.\n", what, pf.Step, failureCause(err))
		if len(pf.Completed) > 0 {
			fmt.Fprintf(&b, "**Completed:** %s\n", strings.Join(pf.Completed, ", "))
		}
		if len(pf.NotAttempted) > 0 {
			fmt.Fprintf(&b, "**Not attempted:** %s\n", strings.Join(pf.NotAttempted, ", "))
		}
	} else {
		fmt.Fprintf(&b, "❌ %s failed before any change was made: %s.\n", what, failureCause(err))
	}
	extra(&b)
	return b.String()
}

func failureCause(err error) string {
	if re, ok := apperr.Remote(err); ok {
		if re.Status != 0 {
			return fmt.Sprintf("%s returned HTTP %d", re.Service, re.Status)
		}
		return re.Service + " was unreachable"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "internal error"
}
