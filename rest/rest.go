package rest

import (
	"net/http"
	"strconv"

	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/starboard"
	"github.com/Seklfreak/starboard/storage"
	"github.com/emicklei/go-restful"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 50
)

// Starboard serves read-only views of configs and mirrors
type Starboard struct {
	Configs starboard.ConfigSource
	Store   storage.Store
	Log     *logrus.Entry
}

func NewRestServices(s *Starboard) []*restful.WebService {
	services := make([]*restful.WebService, 0)

	service := new(restful.WebService)
	service.
		Path("/starboard").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	service.Route(service.GET("/{guild-id}/config").To(s.GetConfig).
		Param(service.PathParameter("guild-id", "id of the guild")))
	service.Route(service.GET("/{guild-id}/top").To(s.GetTop).
		Param(service.PathParameter("guild-id", "id of the guild")).
		Param(service.QueryParameter("limit", "number of entries, at most 50").DataType("integer")))
	service.Route(service.GET("/mirror/{message-id}").To(s.GetMirror).
		Param(service.PathParameter("message-id", "id of the original message")))
	services = append(services, service)

	return services
}

func (s *Starboard) GetConfig(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	config, err := s.Configs.GetConfig(request.Request.Context(), guildID)
	if err != nil {
		s.writeError(response, err)
		return
	}
	if config == nil {
		response.WriteError(http.StatusNotFound, errors.New("Starboard not configured"))
		return
	}

	response.WriteEntity(models.NewRestStarboardConfig(*config))
}

func (s *Starboard) GetTop(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	limit := defaultTopLimit
	if value := request.QueryParameter("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			response.WriteError(http.StatusBadRequest, errors.New("Invalid limit"))
			return
		}
		limit = parsed
		if limit > maxTopLimit {
			limit = maxTopLimit
		}
	}

	records, err := s.Store.TopMirrors(request.Request.Context(), guildID, limit)
	if err != nil {
		s.writeError(response, err)
		return
	}

	result := new(models.Rest_Starboard_Top)
	result.Entries = make([]models.Rest_Starboard_Mirror, 0, len(records))
	for _, record := range records {
		result.Entries = append(result.Entries, models.NewRestStarboardMirror(record,
			starboard.JumpLink(record.GuildID, record.OriginalChannelID, record.OriginalMessageID)))
	}
	result.Count = len(result.Entries)

	response.WriteEntity(result)
}

func (s *Starboard) GetMirror(request *restful.Request, response *restful.Response) {
	messageID := request.PathParameter("message-id")
	ctx := request.Request.Context()

	record, err := s.Store.GetMirror(ctx, messageID)
	if err != nil {
		s.writeError(response, err)
		return
	}

	voters, err := s.Store.Voters(ctx, messageID)
	if err != nil {
		s.writeError(response, err)
		return
	}

	result := models.NewRestStarboardMirror(*record,
		starboard.JumpLink(record.GuildID, record.OriginalChannelID, record.OriginalMessageID))
	result.Voters = voters

	response.WriteEntity(result)
}

func (s *Starboard) writeError(response *restful.Response, err error) {
	if storage.IsNotFound(err) {
		response.WriteError(http.StatusNotFound, errors.New("Not found"))
		return
	}

	if s.Log != nil {
		s.Log.WithError(err).Error("rest request failed")
	}
	response.WriteError(http.StatusInternalServerError, errors.New("Internal error"))
}
