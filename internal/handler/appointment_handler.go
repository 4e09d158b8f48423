package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clinic-scheduling-api/internal/model"
	"clinic-scheduling-api/internal/scheduling"
)

// AppointmentJSON is the wire form of an appointment.
type AppointmentJSON struct {
	ID            int64   `json:"id"`
	PacienteNome  string  `json:"paciente_nome"`
	PacienteEmail string  `json:"paciente_email"`
	MedicoNome    string  `json:"medico_nome"`
	MedicoEmail   string  `json:"medico_email"`
	Especialidade string  `json:"especialidade"`
	Data          string  `json:"data"`
	Hora          string  `json:"hora"`
	Observacoes   *string `json:"observacoes"`
}

// CreateRequest is the body of POST /consultas.
type CreateRequest struct {
	PacienteNome  string  `json:"paciente_nome"`
	PacienteEmail string  `json:"paciente_email"`
	MedicoNome    string  `json:"medico_nome"`
	MedicoEmail   string  `json:"medico_email"`
	Especialidade string  `json:"especialidade"`
	Data          string  `json:"data"`
	Hora          string  `json:"hora"`
	Observacoes   *string `json:"observacoes"`
}

// UpdateRequest is the body of PUT /consultas/{id}; absent fields are kept.
type UpdateRequest struct {
	Data        *string `json:"data"`
	Hora        *string `json:"hora"`
	Observacoes *string `json:"observacoes"`
}

type createResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func ToJSON(a *model.Appointment) AppointmentJSON {
	return AppointmentJSON{
		ID:            a.ID,
		PacienteNome:  a.PatientName,
		PacienteEmail: a.PatientEmail,
		MedicoNome:    a.DoctorName,
		MedicoEmail:   a.DoctorEmail,
		Especialidade: a.Specialty,
		Data:          a.Date,
		Hora:          a.Time,
		Observacoes:   a.Notes,
	}
}

func ToJSONList(in []model.Appointment) []AppointmentJSON {
	out := make([]AppointmentJSON, len(in))
	for i := range in {
		out[i] = ToJSON(&in[i])
	}
	return out
}

func (c CreateRequest) Input() scheduling.CreateInput {
	return scheduling.CreateInput{
		PatientName:  c.PacienteNome,
		PatientEmail: c.PacienteEmail,
		DoctorName:   c.MedicoNome,
		DoctorEmail:  c.MedicoEmail,
		Specialty:    c.Especialidade,
		Date:         c.Data,
		Time:         c.Hora,
		Notes:        c.Observacoes,
	}
}

func (u UpdateRequest) Input() scheduling.UpdateInput {
	return scheduling.UpdateInput{Date: u.Data, Time: u.Hora, Notes: u.Observacoes}
}

// ParseID parses a positive appointment id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("ID inválido: %q.", s)
	}
	return id, nil
}

// nameParam returns the {name} segment decoded. chi matches on RawPath when
// the request escapes characters like %2F or %26, leaving them encoded.
func nameParam(r *http.Request) (string, error) {
	v := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return v, nil
	}
	name, err := url.PathUnescape(v)
	if err != nil {
		return "", model.NewValidationError("Nome inválido: %q.", v)
	}
	return name, nil
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.sched.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToJSONList(list))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.sched.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToJSON(a))
}

func (h *Handler) FindByPatient(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.sched.FindByPatient(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToJSONList(list))
}

func (h *Handler) FindByDoctor(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.sched.FindByDoctor(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToJSONList(list))
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.sched.Create(r.Context(), req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{Message: "Consulta agendada com sucesso!", ID: id})
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.sched.Update(r.Context(), id, req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToJSON(a))
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sched.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Consulta removida com sucesso!")
}
