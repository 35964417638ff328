package runtime

import (
	"fmt"
	"sort"

	"github.com/aretw0/rerun/pkg/domain"
)

// UpdateWidget applies a value reported by the client to a widget of the previous run.
//
// Widgets inside a form buffer their value until the form's submit widget reports true; the
// buffered values are then applied together. When the updated widget has a callback it is
// scheduled for the start of the next run.
func (e *Engine) UpdateWidget(sessionID, internalKey string, raw any) error {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("update widget: %w", domain.ErrSessionNotFound)
	}
	if _, busy := e.Current(sessionID); busy {
		return domain.NewConfigurationError("widget %q updated while a run is in progress for session %q", internalKey, sessionID)
	}

	prev, _ := sess.LastExecution.(*snapshot)
	reg := prev.lookup(internalKey)
	if reg == nil {
		return domain.NewConfigurationError("widget %q was not rendered by the last run", internalKey)
	}
	stateful, ok := reg.Widget.(domain.Stateful)
	if !ok {
		return domain.NewConfigurationError("widget %q of type %s holds no value", internalKey, reg.Widget.TypeName())
	}
	value, err := stateful.ParseValue(raw)
	if err != nil {
		return domain.NewConfigurationError("invalid value for widget %q: %v", internalKey, err)
	}

	formKey, inForm := reg.Container.EnclosingFormKey()

	if s, ok := reg.Widget.(domain.Submitter); ok && s.IsSubmit() {
		if !inForm {
			return domain.NewConfigurationError("submit widget %q is not inside a form", internalKey)
		}
		e.apply(sess, reg, value)
		if submitted, _ := value.(bool); submitted {
			form, _ := reg.Container.EnclosingForm()
			e.submitForm(sess, prev, formKey, form)
		}
		return nil
	}

	if inForm {
		pending, ok := sess.PendingFormState[formKey]
		if !ok {
			pending = make(map[string]any)
			sess.PendingFormState[formKey] = pending
		}
		pending[internalKey] = value
		e.logger.Debug("Form value buffered", "session_id", sessionID, "form", formKey, "key", internalKey)
		return nil
	}

	e.apply(sess, reg, value)
	return nil
}

// submitForm applies every buffered value of a form in a stable order.
// A clear-on-submit form resets only the widgets whose values were just applied.
func (e *Engine) submitForm(sess *domain.SessionState, prev *snapshot, formKey string, form domain.Container) {
	pending := sess.PendingFormState[formKey]
	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if reg := prev.lookup(k); reg != nil {
			e.apply(sess, reg, pending[k])
		} else {
			sess.Upsert(k, sess.InternalKeyToUserKey[k], pending[k])
		}
	}
	delete(sess.PendingFormState, formKey)

	if form.ClearOnSubmit() {
		for _, k := range keys {
			sess.FormKeysToReset[k] = struct{}{}
		}
	}
	e.logger.Debug("Form submitted", "session_id", sess.ID, "form", formKey, "applied", len(keys))
}

func (e *Engine) apply(sess *domain.SessionState, reg *Registration, value any) {
	sess.Upsert(reg.InternalKey, reg.UserKey, value)
	if cb, ok := reg.Widget.(domain.WithCallback); ok && cb.Callback() != nil {
		sess.CallbackKey = reg.InternalKey
	}
}
