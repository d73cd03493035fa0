package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"familyvault/internal/http/middleware"
	"familyvault/internal/service"
)

// GetProfile returns the caller's account with its family links.
//
// @Summary     Own profile
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]any
// @Failure     401 {object} errorPayload
// @Router      /api/users/profile [get]
func GetProfile(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, err := svc.GetProfile(c.UserContext(), middleware.AccountID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"user": acc})
	}
}

// UpdateProfile applies the optional profile changes of the caller.
//
// @Summary     Update own profile
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body body service.ProfileInput true "Changes"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     409 {object} errorPayload
// @Router      /api/users/profile [put]
func UpdateProfile(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ProfileInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		acc, err := svc.UpdateProfile(c.UserContext(), middleware.AccountID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"message": "Profile updated successfully",
			"user":    acc,
		})
	}
}

// AddFamilyMember links a verified account to the caller by Aadhaar number.
//
// @Summary     Add a family member
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body body service.FamilyMemberInput true "Member"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     409 {object} errorPayload
// @Router      /api/users/family-members [post]
func AddFamilyMember(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.FamilyMemberInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		members, err := svc.AddFamilyMember(c.UserContext(), middleware.AccountID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"message":       "Family member added successfully",
			"familyMembers": members,
		})
	}
}

// SearchUser looks up a verified account by Aadhaar number.
//
// @Summary     Search by Aadhaar
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       aadhaar query string true "12-digit Aadhaar number"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/users/search [get]
func SearchUser(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := svc.SearchByAadhaar(c.UserContext(), c.Query("aadhaar"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"user": user})
	}
}
