package handler

import (
	"github.com/gofiber/fiber/v2"

	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
	"campus-erp/internal/service/academic"
)

type AcademicHandler struct {
	academicService academic.Service
}

func NewAcademicHandler(academicService academic.Service) *AcademicHandler {
	return &AcademicHandler{academicService: academicService}
}

func (h *AcademicHandler) CreateAssignment(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateAssignmentInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	a, err := h.academicService.CreateAssignment(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, a)
}

func (h *AcademicHandler) ListAssignments(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	group := c.Query("group")
	if group == "" {
		return middleware.BadRequest("group query parameter is required")
	}

	list, err := h.academicService.ListAssignments(c.Context(), actor, group)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, list)
}

func (h *AcademicHandler) GetAssignment(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "assignment")
	if err != nil {
		return err
	}

	a, err := h.academicService.GetAssignment(c.Context(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, a)
}

func (h *AcademicHandler) PublishAssignment(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "assignment")
	if err != nil {
		return err
	}

	a, err := h.academicService.PublishAssignment(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, a)
}

func (h *AcademicHandler) CreateTest(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateTestInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	t, err := h.academicService.CreateTest(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, t)
}

func (h *AcademicHandler) ListTests(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	group := c.Query("group")
	if group == "" {
		return middleware.BadRequest("group query parameter is required")
	}

	list, err := h.academicService.ListTests(c.Context(), actor, group)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, list)
}

func (h *AcademicHandler) GetTest(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "test")
	if err != nil {
		return err
	}

	t, err := h.academicService.GetTest(c.Context(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, t)
}

func (h *AcademicHandler) PublishTest(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "test")
	if err != nil {
		return err
	}

	t, err := h.academicService.PublishTest(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, t)
}

func (h *AcademicHandler) Submit(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "assignment")
	if err != nil {
		return err
	}

	var input domain.SubmitInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	sub, err := h.academicService.Submit(c.Context(), actor, id, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, sub)
}

func (h *AcademicHandler) ListSubmissions(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "assignment")
	if err != nil {
		return err
	}

	subs, err := h.academicService.ListSubmissions(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, subs)
}

func (h *AcademicHandler) Grade(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "submission")
	if err != nil {
		return err
	}

	var input domain.GradeInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	sub, err := h.academicService.GradeSubmission(c.Context(), actor, id, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, sub)
}
